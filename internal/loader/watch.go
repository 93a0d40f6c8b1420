package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kintree/kintree-go/internal/graph"
)

// debounceInterval batches rapid successive writes (editors and exporters
// often write a file more than once) into a single reload.
const debounceInterval = 500 * time.Millisecond

// Watch monitors a dataset document for changes and reloads it on each
// change, invoking onReload with the freshly built graph. Blocks until the
// context is cancelled. Reload failures are reported through onError and
// do not stop the watch; the previous dataset stays in effect.
func Watch(ctx context.Context, file string, onReload func(*graph.FamilyGraph) error, onError func(error)) error {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", file, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors that replace the
	// file via rename would otherwise drop the watch.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(absPath), err)
	}

	debounce := time.NewTimer(debounceInterval)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !sameFile(event.Name, absPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(debounceInterval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(err)

		case <-debounce.C:
			if _, err := os.Stat(absPath); err != nil {
				onError(fmt.Errorf("dataset unavailable: %w", err))
				continue
			}

			g, err := Load(absPath)
			if err != nil {
				onError(err)
				continue
			}
			if err := onReload(g); err != nil {
				onError(err)
			}
		}
	}
}

func sameFile(a, b string) bool {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	return absA == b
}
