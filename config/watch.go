package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long Watch waits after the last file event before
// reloading.
var WatchDebounce = 300 * time.Millisecond

// Watch reloads the config at path whenever it changes and hands the result
// to onChange. It watches the parent directory so editors that replace the
// file by rename are seen too. Watch blocks until ctx is done; decode errors
// are logged and the previous config stays in effect.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	if logger != nil {
		logger.Debug("config.watch started", "path", abs)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()
	reload := func() {
		if ctx.Err() != nil {
			return
		}
		cfg, err := Load(abs)
		if err != nil {
			if logger != nil {
				logger.Warn("config reload failed", "path", abs, "error", err)
			}
			return
		}
		if logger != nil {
			logger.Info("config reloaded", "path", abs)
		}
		onChange(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(WatchDebounce, reload)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warn("config watcher error", "error", err)
			}
		}
	}
}
