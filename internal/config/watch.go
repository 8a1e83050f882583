package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config at path whenever it changes and hands the new
// value to onChange. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so editors
// that save by rename keep triggering reloads. A config that fails to load
// is logged and skipped; onChange is not called.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = Path()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("config: watching for changes", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(abs)
			if err != nil {
				logger.Error("config: reload failed, keeping previous config", "path", abs, "err", err)
				continue
			}
			logger.Info("config: reloaded", "path", abs)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("config: watcher error", "err", err)
		}
	}
}
