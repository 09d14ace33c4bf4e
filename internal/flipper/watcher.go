package flipper

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceWindow is how long the watcher waits for further events
// before invoking its handler.
const DefaultDebounceWindow = 200 * time.Millisecond

// ChangeHandler receives the workspace-relative paths of changed files
// after debouncing.
type ChangeHandler func(paths []string)

// Watcher observes the workspace for file changes and invokes its handler
// with debounced batches. It is the cache-invalidation signal source for
// the result cache, which has no staleness detection of its own.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	handler  ChangeHandler
	debounce time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over the workspace root. handler is invoked
// from a single goroutine.
func NewWatcher(root string, handler ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		watcher:  fsw,
		handler:  handler,
		debounce: DefaultDebounceWindow,
		done:     make(chan struct{}),
	}, nil
}

// Start registers watches for the workspace tree and begins dispatching
// events. fsnotify does not watch recursively, so every directory is
// registered individually; directories created later are added as their
// create events arrive.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := skipDirs[d.Name()]; skip && path != w.root {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		return err
	}

	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	var pending []string
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories need their own watch.
				w.maybeWatchDir(event.Name)
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				continue
			}
			pending = append(pending, filepath.ToSlash(rel))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			if len(pending) > 0 {
				w.handler(dedupe(pending))
				pending = nil
			}
			timerC = nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) maybeWatchDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if _, skip := skipDirs[filepath.Base(path)]; skip {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		slog.Debug("Failed to watch new directory", "path", path, "error", err)
	}
}

// Close stops event dispatch and releases the underlying watcher.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	var out []string
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
