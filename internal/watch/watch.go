// Package watch rebuilds a project whenever its sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"cth/internal/config"
	"cth/internal/logfields"
)

// DefaultDebounce groups bursts of events, such as an editor save, into
// a single rebuild.
const DefaultDebounce = 300 * time.Millisecond

// DefaultPaths are the project inputs watched, relative to the root.
var DefaultPaths = []string{config.FileName, config.DataDir, config.PagesDir, config.ThemesDir, config.HooksDir}

// Options configure Run.
type Options struct {
	Root     string
	Paths    []string
	Debounce time.Duration
	Build    func(ctx context.Context) error
	Logger   *slog.Logger
}

// Run builds once, then rebuilds after every change until ctx is done.
// Rebuild failures are logged and watching continues.
func Run(ctx context.Context, opts Options) error {
	if opts.Paths == nil {
		opts.Paths = DefaultPaths
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := opts.Build(ctx); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()

	w := &dirWatcher{watcher: watcher, watched: map[string]bool{}, logger: opts.Logger}
	for _, rel := range opts.Paths {
		path := filepath.Join(opts.Root, rel)
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("could not stat path %s: %w", path, err)
		}
		if info.IsDir() {
			if err := w.addTree(path); err != nil {
				return err
			}
			continue
		}
		// Files are watched through their directory, which survives
		// editors that save by renaming.
		w.add(filepath.Dir(path))
	}

	opts.Logger.Info("watching for changes", logfields.Path(opts.Root))
	return w.loop(ctx, opts)
}

type dirWatcher struct {
	watcher *fsnotify.Watcher
	watched map[string]bool
	logger  *slog.Logger
}

func (w *dirWatcher) add(dir string) {
	dir = filepath.Clean(dir)
	if w.watched[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("could not watch directory", logfields.Path(dir), logfields.Error(err))
		return
	}
	w.watched[dir] = true
	w.logger.Debug("watching directory", logfields.Path(dir))
}

func (w *dirWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			w.add(path)
		}
		return nil
	})
}

func (w *dirWatcher) loop(ctx context.Context, opts Options) error {
	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := ""

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addTree(event.Name)
				}
			}
			pending = event.Name
			timer.Reset(opts.Debounce)

		case <-timer.C:
			opts.Logger.Info("change detected, rebuilding", logfields.Path(pending))
			if err := opts.Build(ctx); err != nil {
				opts.Logger.Error("rebuild failed", logfields.Error(err))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			opts.Logger.Warn("watcher error", logfields.Error(err))
		}
	}
}
