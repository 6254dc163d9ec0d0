// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// LockFile is the name of the lock taken in the download directory.
const LockFile = ".kindle-fetcher.lock"

// ErrLocked is returned by Start when another process is already working
// in the download directory.
var ErrLocked = errors.New("another kindle-fetcher batch is running in this download directory")

// Worker runs batches on a background goroutine while holding an exclusive
// lock on the download directory. With a non-zero interval it repeats the
// run until stopped.
type Worker struct {
	runner   *Runner
	interval time.Duration
	logger   *zap.Logger

	lockPath string
	lock     *flock.Flock

	// OnResult, when set, is called after every completed run.
	OnResult func(Result)

	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	results []Result
	err     error
}

// NewWorker returns a worker for runner that locks downloadDir.
func NewWorker(runner *Runner, downloadDir string, interval time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	lockPath := filepath.Join(downloadDir, LockFile)
	return &Worker{
		runner:   runner,
		interval: interval,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start takes the lock and launches the worker goroutine.
func (w *Worker) Start(ctx context.Context) error {
	if w.running.Load() {
		return errors.New("worker already running")
	}
	if err := os.MkdirAll(filepath.Dir(w.lockPath), 0o755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}

	w.running.Store(true)
	w.logger.Info("batch worker started", zap.String("lock", w.lockPath), zap.Duration("interval", w.interval))
	go w.loop(ctx)
	return nil
}

// Stop asks the worker to finish the book in progress and exit. It does
// not wait; use Wait for that.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.runner.Stop()
		close(w.stopCh)
	})
}

// Wait blocks until the worker exits and returns the results of every
// completed run along with the error that ended it, if any.
func (w *Worker) Wait() ([]Result, error) {
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Result(nil), w.results...), w.err
}

// Running reports whether the worker goroutine is active.
func (w *Worker) Running() bool {
	return w.running.Load()
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if err := w.lock.Unlock(); err != nil {
			w.logger.Warn("failed to release batch lock", zap.Error(err))
		}
		w.running.Store(false)
		w.logger.Info("batch worker stopped")
	}()

	for {
		result, err := w.runner.Run(ctx)
		w.mu.Lock()
		w.results = append(w.results, result)
		if err != nil {
			w.err = err
		}
		w.mu.Unlock()
		if w.OnResult != nil {
			w.OnResult(result)
		}
		if err != nil || w.interval <= 0 || w.runner.Stopped() {
			return
		}

		t := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			w.mu.Lock()
			w.err = ctx.Err()
			w.mu.Unlock()
			return
		case <-w.stopCh:
			t.Stop()
			return
		case <-t.C:
		}
	}
}
