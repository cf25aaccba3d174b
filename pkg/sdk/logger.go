package sdk

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Transport receives every client log line at or above the configured level.
type Transport func(ctx context.Context, level log.Level, message string)

type LoggerOptions struct {
	Level     log.Level
	Transport Transport
}

type Logger struct {
	level     log.Level
	transport Transport
}

func newLogger(opts LoggerOptions) *Logger {
	level := opts.Level
	// the zero value of log.Level is PanicLevel, which would drop everything
	if level == log.PanicLevel {
		level = log.InfoLevel
	}
	transport := opts.Transport
	if transport == nil {
		transport = func(_ context.Context, level log.Level, message string) {
			log.WithField("component", "sdk").Log(level, message)
		}
	}
	return &Logger{level: level, transport: transport}
}

func (l *Logger) logf(ctx context.Context, level log.Level, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	l.transport(ctx, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, log.DebugLevel, format, args...)
}

func (l *Logger) Infof(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, log.InfoLevel, format, args...)
}

func (l *Logger) Errorf(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, log.ErrorLevel, format, args...)
}
