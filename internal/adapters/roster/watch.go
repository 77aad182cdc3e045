package roster

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/cragboard/pkg/logger"
)

// Watch reloads the roster when its file changes on disk. It watches the
// parent directory so editors that save by rename are seen. Blocks until
// ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("roster watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(s.path)
	dir := filepath.Dir(target)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.log.Debug(ctx, "watching roster", logger.String("path", target))

	// nil until an event arrives; each event pushes the reload out
	var reload <-chan time.Time

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			reload = time.After(s.debounce)

		case <-reload:
			reload = nil
			_ = s.load(ctx, SourceWatch)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn(ctx, "roster watcher error", logger.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
