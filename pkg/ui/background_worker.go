package ui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/vanderheijden86/identigraph/pkg/session"
	"github.com/vanderheijden86/identigraph/pkg/watcher"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is building a new session.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string // "read" or "build"
	Cause   error
	Time    time.Time
	Retries int // Consecutive failures including this one
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// Sender delivers messages to the running program. *tea.Program satisfies it.
type Sender interface {
	Send(tea.Msg)
}

// BuildFunc loads a topology file and builds a fresh session from it.
type BuildFunc func(path string) (*session.Session, error)

// BackgroundWorker rebuilds the session off the UI thread whenever the
// topology file changes. Changes that arrive while a build is running are
// coalesced into one more build.
type BackgroundWorker struct {
	path  string
	build BuildFunc

	mu        sync.RWMutex
	state     WorkerState
	dirty     bool
	started   bool
	lastHash  string
	lastError *WorkerError
	errCount  int

	watcher *watcher.Watcher
	program Sender
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	Path     string
	Debounce time.Duration
	Build    BuildFunc
	Program  Sender // May be set later with SetProgram
	Logger   *zap.Logger
}

// NewBackgroundWorker creates a worker for cfg.Path. Nothing is watched
// until Start.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	if cfg.Build == nil {
		return nil, errors.New("worker: build function is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	fw, err := watcher.New(cfg.Path, watcher.Options{Debounce: cfg.Debounce, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundWorker{
		path:    fw.Path(),
		build:   cfg.Build,
		state:   WorkerIdle,
		watcher: fw,
		program: cfg.Program,
		log:     cfg.Logger.Named("worker"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// SetProgram sets where results are sent. The program usually has to be
// created after the worker, since the model holds the worker.
func (w *BackgroundWorker) SetProgram(p Sender) {
	w.mu.Lock()
	w.program = p
	w.mu.Unlock()
}

// Start begins watching and records the current file hash so the first
// notification only rebuilds on a real content change. It is idempotent.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return errors.New("worker: stopped")
	}
	w.started = true
	if hash, err := hashFile(w.path); err == nil {
		w.lastHash = hash
	}
	w.mu.Unlock()

	if err := w.watcher.Start(); err != nil {
		close(w.done)
		return err
	}
	go w.processLoop()
	return nil
}

// Stop halts the worker. It is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	w.watcher.Stop()

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// TriggerRefresh rebuilds now even if the file is unchanged.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.lastHash = ""
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	go w.process()
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error, nil if the last build succeeded.
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the content hash of the last file that was built.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changes():
			w.process()
		}
	}
}

func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	sess := w.buildSession()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		if sess != nil {
			sess.Teardown()
		}
		return
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	program := w.program
	w.mu.Unlock()

	if sess != nil {
		if program != nil {
			program.Send(SessionReadyMsg{Session: sess, Path: w.path})
		} else {
			sess.Teardown()
		}
	}

	if wasDirty {
		go w.process()
	}
}

// buildSession returns nil when the content is unchanged or the build
// failed; failures are reported to the program.
func (w *BackgroundWorker) buildSession() *session.Session {
	start := time.Now()

	var hash string
	if werr := w.safeCompute("read", func() error {
		var err error
		hash, err = hashFile(w.path)
		return err
	}); werr != nil {
		w.fail(werr)
		return nil
	}

	w.mu.RLock()
	unchanged := hash == w.lastHash
	w.mu.RUnlock()
	if unchanged {
		w.log.Debug("content unchanged, skipping rebuild", zap.String("hash", hashPrefix(hash)))
		w.recordError(nil)
		return nil
	}

	var sess *session.Session
	if werr := w.safeCompute("build", func() error {
		var err error
		sess, err = w.build(w.path)
		return err
	}); werr != nil {
		w.fail(werr)
		return nil
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	w.log.Info("session rebuilt",
		zap.String("path", w.path),
		zap.String("hash", hashPrefix(hash)),
		zap.Duration("took", time.Since(start)))
	return sess
}

func (w *BackgroundWorker) fail(werr *WorkerError) {
	w.recordError(werr)
	w.log.Warn("rebuild failed", zap.String("phase", werr.Phase), zap.Error(werr.Cause))
	w.mu.RLock()
	program := w.program
	w.mu.RUnlock()
	if program != nil {
		program.Send(SessionErrorMsg{Err: werr, Recoverable: true})
	}
}

// safeCompute runs fn, converting a panic into a WorkerError.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: errors.Newf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
		}
	}()
	return result
}

func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastError = err
	if err != nil {
		w.errCount++
		err.Retries = w.errCount
	} else {
		w.errCount = 0
	}
}

// SessionReadyMsg carries a rebuilt session to the UI.
type SessionReadyMsg struct {
	Session *session.Session
	Path    string
}

// SessionErrorMsg is sent when a rebuild fails.
type SessionErrorMsg struct {
	Err         error
	Recoverable bool // True if the next file change may fix it
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
