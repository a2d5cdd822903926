package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 100 * time.Millisecond

// WatchSettings re-reads the settings file whenever it changes and passes the
// parsed result to apply. The parent directory is watched so editors that
// replace the file atomically are handled. Blocks until ctx is done.
func WatchSettings(ctx context.Context, path string, log *zap.Logger, apply func(ProviderSettings)) error {
	if log == nil {
		log = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve settings path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			trigger = timer.C

		case <-trigger:
			trigger = nil
			s, err := LoadSettings(abs)
			if err != nil {
				log.Warn("Settings reload failed", zap.String("path", abs), zap.Error(err))
				continue
			}
			log.Info("Settings reloaded", zap.String("path", abs), zap.String("provider", s.Provider))
			apply(s)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Settings watcher error", zap.Error(err))
		}
	}
}
