package store

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/crmkit/crm-data-apis/log"
)

// Watch calls reload every time the file at path is written or replaced,
// until the context is done. The parent directory is watched so that editors
// replacing the file by rename are noticed.
func Watch(ctx context.Context, path string, logger log.Logger, reload func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	const changed = fsnotify.Write | fsnotify.Create | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&changed == 0 {
				continue
			}
			logger.Info("file changed, reloading", "path", path, "op", event.Op.String())
			if err := reload(); err != nil {
				logger.Error("unable to reload file", "path", path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "path", path, "error", err)
		}
	}
}
