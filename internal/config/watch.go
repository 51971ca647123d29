package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

// ReloadDebounce is how long Watch waits after the last file event before
// reloading. Editors often emit a truncate, a write and a chmod per save.
const ReloadDebounce = 250 * time.Millisecond

// Watch monitors path and calls onChange with the reloaded Config once a
// burst of writes settles. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so saves that
// replace the file by rename are seen too. A reload that fails to parse or
// validate is logged and skipped, and so is one that leaves the config
// unchanged; the caller keeps its previous config in both cases.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return watch(ctx, path, ReloadDebounce, onChange)
}

func watch(ctx context.Context, path string, debounce time.Duration, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", path, err)
	}
	current, err := Load(abs)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}

	log := zap.L().With(zap.String("path", abs))
	log.Info("config: watching for changes", zap.Duration("debounce", debounce))

	var settle <-chan time.Time
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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			settle = time.After(debounce)

		case <-settle:
			settle = nil
			next, err := Load(abs)
			if err != nil {
				log.Error("config: reload failed, keeping previous config", zap.Error(err))
				continue
			}
			if cmp.Equal(current, next) {
				log.Debug("config: file touched, nothing changed")
				continue
			}
			current = next
			log.Info("config: reloaded")
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config: watcher error", zap.Error(err))
		}
	}
}
