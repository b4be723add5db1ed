// Package watch reports changes to input files so conversions can be re-run.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/traceport/logging"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is used when NewWatcher gets a non-positive debounce.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a set of files. Each file's parent directory is watched so
// editors that replace files by rename are still seen. Symlinked files are
// tracked through their targets.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logrus.Entry
	onChange func(path string)

	// files maps every watched name, symlink targets included, to the path
	// the caller asked for.
	files map[string]string

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher watches paths and calls onChange once a file has been quiet for
// debounce after a write, create or rename.
func NewWatcher(paths []string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:  fw,
		debounce: debounce,
		logger:   logging.NewLogger("watch"),
		onChange: onChange,
		files:    make(map[string]string),
		pending:  make(map[string]*time.Timer),
	}

	watchedDirs := make(map[string]bool)
	addDir := func(dir string) error {
		if watchedDirs[dir] {
			return nil
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watchedDirs[dir] = true
		return nil
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = p
		if err := addDir(filepath.Dir(abs)); err != nil {
			fw.Close()
			return nil, err
		}

		// fsnotify doesn't follow symlinks, so watch targets explicitly
		if target, err := filepath.EvalSymlinks(abs); err == nil && target != abs {
			w.files[target] = p
			if err := addDir(filepath.Dir(target)); err != nil {
				w.logger.WithError(err).Warnf("Failed to watch symlink target dir for %s", p)
			}
		}
	}

	return w, nil
}

// Start delivers change notifications until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.stopTimers()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, ok := w.files[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			w.schedule(name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)

		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// schedule (re)arms the quiet-period timer for name.
func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[name]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()

		w.logger.Infof("Input changed: %s", filepath.Base(name))
		w.onChange(name)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.stopTimers()
	return w.watcher.Close()
}
