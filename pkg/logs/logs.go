// Package logs collects the log lines produced while serving a single flag
// evaluation and keeps the most recent collection around for inspection.
package logs

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Entry struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func NewEntry(level log.Level, message string, at time.Time) Entry {
	return Entry{
		Level:     level.String(),
		Message:   message,
		Timestamp: at.UTC().Format(timestampLayout),
	}
}

// Collector is an append-only list of entries owned by one request.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

func NewCollector() *Collector {
	return &Collector{now: time.Now}
}

func (c *Collector) Add(level log.Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, NewEntry(level, message, c.now()))
}

// Entries returns a copy of the collected entries.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

type ctxKey struct{}

func NewContext(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the collector attached to ctx, or nil.
func FromContext(ctx context.Context) *Collector {
	c, _ := ctx.Value(ctxKey{}).(*Collector)
	return c
}

// Buffer points at the collector of the latest evaluation.
type Buffer struct {
	mu      sync.RWMutex
	current *Collector
}

func (b *Buffer) Publish(c *Collector) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = c
}

func (b *Buffer) Get() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return []Entry{}
	}
	return b.current.Entries()
}

// Reset swaps in an empty collector and returns it.
func (b *Buffer) Reset() *Collector {
	c := NewCollector()
	b.Publish(c)
	return c
}
