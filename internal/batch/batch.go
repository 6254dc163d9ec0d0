// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch works through a wishlist: it skips books already in the
// ledger, acquires the rest one at a time, hands each download to the
// delivery sink, and records successes.
package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/kindle-fetcher/internal/ledger"
	"github.com/pdiddy/kindle-fetcher/internal/wishlist"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// Source produces the requests for a run.
type Source interface {
	Requests(ctx context.Context) ([]types.BookRequest, error)
}

// Ledger remembers acquired titles.
type Ledger interface {
	Contains(ctx context.Context, title string) (bool, error)
	Record(ctx context.Context, e ledger.Entry) error
}

// Sink delivers a downloaded file. A nil error means delivered.
type Sink interface {
	Deliver(ctx context.Context, path string) error
}

// Acquirer fetches one book. *acquire.Acquirer implements it.
type Acquirer interface {
	Acquire(ctx context.Context, req types.BookRequest, formats []string) (*types.AcquisitionResult, error)
}

// Outcome is what happened to one request.
type Outcome string

const (
	OutcomeAcquired       Outcome = "acquired"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFailed         Outcome = "failed"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
)

// Item records the outcome for one request.
type Item struct {
	Request   types.BookRequest
	Outcome   Outcome
	Delivered bool
	Path      string
	Err       error
}

// Result holds the outcome of a batch run. Acquired, Skipped and Failed
// partition the processed requests; Delivered counts the acquired books
// that were also delivered.
type Result struct {
	RunID     string
	Acquired  int
	Delivered int
	Skipped   int
	Failed    int
	Items     []Item
	Started   time.Time
	Finished  time.Time
}

// Total returns the number of requests processed.
func (r Result) Total() int {
	return r.Acquired + r.Skipped + r.Failed
}

// HasFailures reports whether any request failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// Summary returns a one-line report of the run.
func (r Result) Summary() string {
	return fmt.Sprintf("%d acquired (%d delivered), %d skipped, %d failed (total: %d)",
		r.Acquired, r.Delivered, r.Skipped, r.Failed, r.Total())
}

// Runner performs batch runs. Ledger and Sink are optional.
type Runner struct {
	Source   Source
	Acquirer Acquirer
	Ledger   Ledger
	Sink     Sink
	Formats  []string

	// EmptyRetryDelay is how long to wait before asking the source a
	// second time when it returned no requests. Zero disables the retry.
	EmptyRetryDelay time.Duration

	Logger *zap.Logger

	stop atomic.Bool
}

// Stop makes the current and future runs return before starting another
// request. The request in progress is finished.
func (r *Runner) Stop() {
	r.stop.Store(true)
}

// Stopped reports whether Stop has been called.
func (r *Runner) Stopped() bool {
	return r.stop.Load()
}

// Run processes every request from the source in order. Individual
// failures are counted and do not stop the run; an error is returned only
// when the source fails or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: uuid.NewString(), Started: time.Now()}
	logger := r.logger().With(zap.String("run_id", result.RunID))

	reqs, err := r.requests(ctx, logger)
	if err != nil {
		result.Finished = time.Now()
		return result, err
	}
	logger.Info("batch started", zap.Int("requests", len(reqs)))

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			result.Finished = time.Now()
			return result, err
		}
		if r.Stopped() {
			logger.Info("batch stopped before completion")
			break
		}

		item, err := r.process(ctx, logger, wishlist.Normalize(req))
		if err != nil {
			result.Finished = time.Now()
			return result, err
		}
		result.Items = append(result.Items, item)
		switch item.Outcome {
		case OutcomeAcquired:
			result.Acquired++
			if item.Delivered {
				result.Delivered++
			}
		case OutcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	result.Finished = time.Now()
	logger.Info("batch finished",
		zap.Int("acquired", result.Acquired),
		zap.Int("delivered", result.Delivered),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", result.Finished.Sub(result.Started)),
	)
	return result, nil
}

func (r *Runner) requests(ctx context.Context, logger *zap.Logger) ([]types.BookRequest, error) {
	reqs, err := r.Source.Requests(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading wishlist: %w", err)
	}
	if len(reqs) > 0 || r.EmptyRetryDelay <= 0 {
		return reqs, nil
	}

	logger.Info("wishlist empty, retrying", zap.Duration("delay", r.EmptyRetryDelay))
	t := time.NewTimer(r.EmptyRetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}

	reqs, err = r.Source.Requests(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading wishlist: %w", err)
	}
	return reqs, nil
}

// process handles one request. Only context cancellation is returned as
// an error; everything else is recorded on the Item.
func (r *Runner) process(ctx context.Context, logger *zap.Logger, req types.BookRequest) (Item, error) {
	item := Item{Request: req}
	key := ledgerTitle(req)
	logger = logger.With(zap.String("book", req.String()))

	if r.Ledger != nil && key != "" {
		seen, err := r.Ledger.Contains(ctx, key)
		if err != nil {
			logger.Warn("ledger lookup failed", zap.Error(err))
		} else if seen {
			logger.Debug("already acquired, skipping")
			item.Outcome = OutcomeSkipped
			return item, nil
		}
	}

	res, err := r.Acquirer.Acquire(ctx, req, r.Formats)
	if err != nil {
		if ctx.Err() != nil {
			return item, ctx.Err()
		}
		logger.Warn("acquisition failed", zap.Error(err))
		item.Outcome = OutcomeFailed
		item.Err = err
		return item, nil
	}
	item.Path = res.LocalPath
	logger.Info("acquired", zap.String("path", res.LocalPath), zap.String("format", res.Format))

	if r.Sink != nil {
		if err := r.Sink.Deliver(ctx, res.LocalPath); err != nil {
			if ctx.Err() != nil {
				return item, ctx.Err()
			}
			logger.Warn("delivery failed", zap.Error(err))
			item.Outcome = OutcomeDeliveryFailed
			item.Err = err
			return item, nil
		}
		item.Delivered = true
		logger.Info("delivered")
	}

	item.Outcome = OutcomeAcquired
	if r.Ledger != nil && key != "" {
		entry := ledger.Entry{
			Title:      key,
			Author:     req.Author,
			Format:     res.Format,
			Path:       res.LocalPath,
			SourceURL:  res.SourceURL,
			AcquiredAt: time.Now(),
		}
		if err := r.Ledger.Record(ctx, entry); err != nil {
			logger.Warn("recording in ledger failed", zap.Error(err))
		}
	}
	return item, nil
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// ledgerTitle is the key a request is stored under: its title, or its
// ISBN for title-less requests.
func ledgerTitle(req types.BookRequest) string {
	if req.Title != "" {
		return req.Title
	}
	return req.ISBN
}
