package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	rewatchAttempts = 10
	rewatchDelay    = 50 * time.Millisecond
)

type FilePathProvider struct {
	URI string
}

func (fp *FilePathProvider) Name() string {
	return "file:" + fp.URI
}

func (fp *FilePathProvider) Fetch(_ context.Context) ([]byte, error) {
	if fp.URI == "" {
		return nil, errors.New("no filepath string set")
	}
	rawFile, err := os.ReadFile(fp.URI)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	return rawFile, nil
}

func (fp *FilePathProvider) Watch(ctx context.Context, onChange func([]byte)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(fp.URI); err != nil {
		return fmt.Errorf("watch %s: %w", fp.URI, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// editors save by renaming a new file over the path, follow it and read it
				if err := fp.rewatch(ctx, watcher); err != nil {
					log.Warnf("settings file %s went away: %v", fp.URI, err)
					continue
				}
			case event.Op&(fsnotify.Write|fsnotify.Create) == 0:
				continue
			}
			settings, err := fp.Fetch(ctx)
			if err != nil {
				log.Error(err)
				continue
			}
			if len(settings) == 0 {
				// a truncating writer fires a write before the content lands
				continue
			}
			onChange(settings)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("settings watcher error: %v", err)
		}
	}
}

// rewatch adds the path back to watcher, waiting briefly for a replacement file to appear.
func (fp *FilePathProvider) rewatch(ctx context.Context, watcher *fsnotify.Watcher) error {
	var err error
	for i := 0; i < rewatchAttempts; i++ {
		if err = watcher.Add(fp.URI); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rewatchDelay):
		}
	}
	return err
}
