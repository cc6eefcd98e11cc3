// Package cleanup periodically removes sessions whose hard expiry has
// passed. Expired sessions cannot authenticate anyway; this keeps the
// session table from growing without bound.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SessionStore exposes the maintenance deletion the worker needs.
type SessionStore interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// Worker runs the periodic sweep.
type Worker struct {
	sessions SessionStore
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Worker.
type Option func(*Worker)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock overrides the clock. Test use only.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

// New constructs a Worker with a one-hour default interval.
func New(sessions SessionStore, opts ...Option) (*Worker, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	w := &Worker{
		sessions: sessions,
		interval: time.Hour,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start sweeps periodically until ctx is cancelled; it returns ctx.Err()
// once cancelled so callers can run it under an errgroup.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep and returns the number of deleted rows.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	deleted, err := w.sessions.DeleteExpired(ctx, w.now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		w.logger.InfoContext(ctx, "expired sessions removed", "count", deleted)
	}
	return deleted, nil
}
