// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filesystem

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher clears the path cache of a Cascade whenever something changes
// inside one of its layers. It only works for layers on the OS filesystem.
type Watcher struct {
	c        *Cascade
	w        *fsnotify.Watcher
	onChange []func()
}

// NewWatcher starts watching every directory of every layer of c. The
// given callbacks run after each cache reset, e.g. to invalidate a
// config.Repository built on top of c.
func NewWatcher(c *Cascade, onChange ...func()) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, layer := range c.Layers() {
		err := addTree(w, layer)
		if err != nil {
			w.Close()
			return nil, err
		}
	}

	return &Watcher{c: c, w: w, onChange: onChange}, nil
}

func addTree(w *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Run processes filesystem events until ctx is cancelled or the
// Watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.c.log.ErrorContext(ctx, "filesystem watcher failed", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		fi, err := os.Stat(ev.Name)
		if err == nil && fi.IsDir() {
			err = addTree(w.w, ev.Name)
			if err != nil {
				w.c.log.WarnContext(ctx, "failed to watch new directory", slog.String("path", ev.Name), slog.Any("error", err))
			}
		}
	}

	w.c.log.DebugContext(ctx, "layer changed", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
	w.c.ClearCache()
	for _, f := range w.onChange {
		f()
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.w.Close()
}
