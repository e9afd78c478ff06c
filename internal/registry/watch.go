package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// Watch invalidates the cache entry for root whenever a file under one of
// its component subtrees changes, and calls onChange after each
// invalidation. It blocks until ctx is done.
func (c *Cache) Watch(ctx context.Context, root string, logger *log.Logger, onChange func()) error {
	logger = logging.OrDiscard(logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	for _, st := range knownSubtrees {
		addTree(watcher, filepath.Join(root, st.typ.Dir()), logger)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					addTree(watcher, event.Name, logger)
				}
			}
			logger.Debug("source changed, invalidating registry", "path", event.Name, "op", event.Op.String())
			c.Invalidate(root)
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		}
	}
}

// addTree registers dir and every directory below it. fsnotify watches are
// not recursive.
func addTree(watcher *fsnotify.Watcher, dir string, logger *log.Logger) {
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil
		}
		if excludedNames[entry.Name()] {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			logger.Warn("cannot watch directory", "path", path, "err", err)
		}
		return nil
	})
}
