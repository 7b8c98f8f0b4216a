// Package watcher reloads inventory sources when their files change on disk.
package watcher

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SourceWatcher watches a set of inventory source files and triggers a
// reload when any of them change.
type SourceWatcher struct {
	paths    []string
	reload   func(ctx context.Context) error
	debounce time.Duration
}

// New creates a watcher over the given source files
func New(paths []string, reload func(ctx context.Context) error) *SourceWatcher {
	return &SourceWatcher{
		paths:    paths,
		reload:   reload,
		debounce: 500 * time.Millisecond,
	}
}

// WithDebounce sets the debounce duration
func (w *SourceWatcher) WithDebounce(d time.Duration) *SourceWatcher {
	w.debounce = d
	return w
}

// Watch blocks until the context is cancelled or the watcher fails.
// Parent directories are watched rather than the files themselves, so
// editors that replace files on save are still picked up.
func (w *SourceWatcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]bool)

	for _, path := range w.paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := fsw.Add(dir); err != nil {
				log.Printf("Failed to watch directory %s: %v", dir, err)
				continue
			}
			watchedDirs[dir] = true
		}

		fileSet[absPath] = true
		log.Printf("Watching %s for changes", absPath)
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil || !fileSet[absPath] {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				// A changed source invalidates derived state everywhere,
				// so one reload covers all files. Debounce rapid saves.
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, func() {
					log.Printf("Source changed: %s, reloading inventory", absPath)
					if err := w.reload(ctx); err != nil {
						log.Printf("Failed to reload inventory: %v", err)
					}
				})
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
