package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the re-read file every time config.yaml is
// written, created or replaced. It blocks until ctx is cancelled.
// The directory is watched rather than the file so editors that save by
// rename are picked up.
func (c *Config) Watch(ctx context.Context, log *slog.Logger, onChange func(File)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := watcher.Add(c.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.Dir, err)
	}

	path := c.ConfigPath()
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
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			f, err := ReadFile(path)
			if err != nil {
				log.Warn("ignoring config change", "path", path, "error", err)
				continue
			}
			log.Info("config reloaded", "path", path)
			onChange(f)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "error", err)
		}
	}
}
