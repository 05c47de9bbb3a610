package app

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watch re-runs the command whenever a contributing parameter file
// changes. Editors often replace files instead of writing in place, so
// the parent directories are watched rather than the files themselves.
func (a *App) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for {
		files, runErr := a.runOnce(ctx)
		if runErr != nil {
			a.logger.Error("Run failed, waiting for changes.", "error", runErr)
		}

		dirs := map[string]bool{filepath.Dir(a.config.ParamsPath): true}
		for _, f := range files {
			dirs[filepath.Dir(f)] = true
		}
		for dir := range dirs {
			if err := watcher.Add(dir); err != nil {
				a.logger.Warn("Failed to watch directory.", "dir", dir, "error", err)
			}
		}

		if err := a.waitForChange(ctx, watcher); err != nil {
			return err
		}
		for dir := range dirs {
			watcher.Remove(dir)
		}
	}
}

// waitForChange blocks until a relevant filesystem event arrives, then
// absorbs the burst of events that usually follows a save.
func (a *App) waitForChange(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			a.logger.Info("Change detected.", "file", event.Name, "op", event.Op.String())
			a.drainEvents(watcher)
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			a.logger.Warn("Watcher error.", "error", err)
		}
	}
}

// drainEvents swallows follow-up events for a short settle window.
func (a *App) drainEvents(watcher *fsnotify.Watcher) {
	timer := time.NewTimer(200 * time.Millisecond)
	defer timer.Stop()
	for {
		select {
		case <-watcher.Events:
		case <-timer.C:
			return
		}
	}
}
