// Package watch re-runs a callback when watched files change on disk.
//
// It backs "bbl2bib convert --watch": LaTeX rewrites the .bbl file on every
// bibtex run, often as several write events in quick succession, so events
// are debounced and delivered once per quiet period.
//
// Parent directories are watched rather than the files themselves. Editors
// and build tools commonly replace a file by writing a new one and renaming
// it over the old path, which drops a watch placed on the file's inode.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// Watcher delivers debounced change notifications for a fixed set of files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	paths    map[string]struct{}
	debounce time.Duration
	logger   *zap.Logger
}

// New creates a Watcher for the given files. Paths are made absolute; the
// files themselves need not exist yet, but their directories must.
func New(paths []string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		paths:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		logger:   logger,
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.paths[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	return w, nil
}

// Run blocks until ctx is cancelled or the watcher is closed, calling
// onChange once per changed file after each quiet period. Calls happen on
// the Run goroutine, in path order, never concurrently.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if _, watched := w.paths[path]; !watched {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("File changed",
				zap.String("path", path),
				zap.String("op", event.Op.String()))
			pending[path] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			for _, p := range changed {
				onChange(p)
			}
		}
	}
}

// Close releases the underlying watcher. A running Run call returns.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
