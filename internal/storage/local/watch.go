package local

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange whenever the backing document is created, rewritten
// or removed, including by another process. It returns once the watcher is
// registered; notifications stop when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: rename-based writes replace the file inode.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if event.Op&relevant == 0 {
					continue
				}
				s.logger.Debug("storage document changed", "path", s.path, "op", event.Op.String())
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("storage watcher error", "path", s.path, "error", err)
			}
		}
	}()

	return nil
}
