// Package watcher turns writes to a single file into debounced change
// notifications that commands can observe.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/cmdgate/internal/log"
	"github.com/zjrosen/cmdgate/internal/subject"
)

// Watcher monitors one file and bumps a change counter after each burst of
// activity on it. It implements subject.Notifier.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	debounce  time.Duration

	version *subject.Property[uint64]

	done     chan struct{}
	stopOnce sync.Once
}

var _ subject.Notifier = (*Watcher)(nil)

// Config holds watcher configuration options.
type Config struct {
	Path        string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		DebounceDur: 200 * time.Millisecond,
	}
}

// New creates a watcher for cfg.Path. The file does not need to exist yet.
func New(cfg Config) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, errors.New("watch path is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		path:      filepath.Clean(cfg.Path),
		debounce:  cfg.DebounceDur,
		version:   subject.NewProperty[uint64](0),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the directory containing the file, so creation and removal
// are seen as well as writes.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}

	log.Info(log.CatWatcher, "watching", "path", w.path, "debounce", w.debounce.String())
	go w.loop()
	return nil
}

// Stop terminates the watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Exists reports whether the watched file currently exists.
func (w *Watcher) Exists() (bool, error) {
	_, err := os.Stat(w.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Version counts debounced changes seen so far.
func (w *Watcher) Version() uint64 {
	return w.version.Get()
}

// Subscribe implements subject.Notifier. fn runs on the watcher goroutine.
func (w *Watcher) Subscribe(fn func()) func() {
	return w.version.Subscribe(fn)
}

// Subject returns a subject that fires after each debounced change.
func (w *Watcher) Subject() *subject.Subject {
	return subject.FromNotifier("watch:"+filepath.Base(w.path), w)
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C
			pending = true

		case <-timerC:
			timerC = nil
			if pending {
				pending = false
				n := w.version.Get() + 1
				w.version.Set(n)
				log.Debug(log.CatWatcher, "file changed", "path", w.path, "version", n)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err, "path", w.path)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}
