package snapshotfile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/pkg/logger"
)

// Watch loads path once, then again on every write, calling onChange with
// each snapshot that loads cleanly. A file that fails to load is logged and
// skipped. Watch runs until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(model.Snapshot)) error {
	log := logger.Get().Named("snapshotfile")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer watcher.Close()

	// The directory is watched so atomic saves, which replace the file,
	// keep being seen.
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	reload := func() {
		snap, err := Load(path)
		if err != nil {
			log.Error(ctx, "snapshot reload failed", logger.String("path", path), logger.Error(err))
			return
		}
		onChange(snap)
	}

	log.Info(ctx, "watching snapshot", logger.String("path", path))
	reload()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, "watcher error", logger.Error(err))
		}
	}
}
