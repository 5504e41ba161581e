// Package watcher reports changes to a topology file so hosts can rebuild
// their session.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces an editor's save burst into one change.
const DefaultDebounce = 200 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *zap.Logger
}

// Watcher watches one file. It watches the parent directory so that
// editors which save by renaming a temp file over the original are seen.
type Watcher struct {
	path     string
	name     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// changes has capacity one; pending notifications coalesce.
	changes chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a watcher for path. Nothing is watched until Start.
func New(path string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     abs,
		name:     filepath.Base(abs),
		fsw:      fsw,
		debounce: opts.Debounce,
		log:      opts.Logger.Named("watcher"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		changes:  make(chan struct{}, 1),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Changes delivers one value per debounced burst of changes.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Start begins watching. It is a no-op when already started.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return errors.New("watcher: stopped")
	}
	if w.started {
		return nil
	}
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(w.path))
	}
	w.started = true
	go w.watchLoop()
	w.log.Debug("watching", zap.String("path", w.path))
	return nil
}

// Stop shuts the watcher down and waits for the loop to exit. It is
// idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	_ = w.fsw.Close()
	if wasStarted {
		<-w.done
	}
}

// watchLoop filters events down to our file and debounces them.
func (w *Watcher) watchLoop() {
	defer close(w.done)

	var fire <-chan time.Time
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			// Chmod alone never changes content
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			fire = time.After(w.debounce)

		case <-fire:
			fire = nil
			w.log.Info("topology changed", zap.String("path", w.path))
			select {
			case w.changes <- struct{}{}:
			default:
				// Receiver has not caught up; one pending change is enough
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}
