// Package ratelimit implements the fixed-window request budget per
// (tenant, client address) key. Windows live in process memory; counters
// are sharded by key so unrelated tenants never serialize on each other.
//
// Fixed windows admit up to 2x the budget across a window boundary. That
// matches the platform's historical behavior; the process-wide throttle in
// front of the store is the mitigation for pathological bursts.
package ratelimit

import (
	"errors"
	"sync"
	"time"

	id "aureon/pkg/domain"
	psync "aureon/pkg/platform/sync"
)

// anonymousTenant keys requests that arrive before tenant resolution or
// for which resolution failed.
const anonymousTenant = "anonymous"

// Key builds the budget key for a request.
func Key(tenantID id.TenantID, clientIP string) string {
	tenant := anonymousTenant
	if !tenantID.IsNil() {
		tenant = tenantID.String()
	}
	return tenant + "-" + clientIP
}

// Decision is the outcome of one budget check. Remaining and ResetAt feed
// the rate-limit response headers; RetryAfter is only meaningful when
// Allowed is false.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type window struct {
	start time.Time
	count int
}

// Limiter is the fixed-window counter table.
type Limiter struct {
	window  time.Duration
	max     int
	locks   *psync.ShardedMutex
	windows sync.Map // key -> *window
	metrics *Metrics
	now     func() time.Time
}

// Option configures the Limiter.
type Option func(*Limiter)

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithClock overrides the clock. Test use only.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New constructs a Limiter allowing max requests per window.
func New(windowSize time.Duration, max int, opts ...Option) (*Limiter, error) {
	if windowSize <= 0 {
		return nil, errors.New("window size must be positive")
	}
	if max <= 0 {
		return nil, errors.New("request maximum must be positive")
	}
	l := &Limiter{
		window: windowSize,
		max:    max,
		locks:  psync.NewShardedMutex(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow consumes one unit of the key's budget and reports the decision.
func (l *Limiter) Allow(key string) Decision {
	l.locks.Lock(key)
	defer l.locks.Unlock(key)

	now := l.now()

	var w *window
	if v, ok := l.windows.Load(key); ok {
		w = v.(*window)
	}
	if w == nil || now.Sub(w.start) > l.window {
		w = &window{start: now, count: 0}
		l.windows.Store(key, w)
	}
	w.count++

	resetAt := w.start.Add(l.window)
	if w.count > l.max {
		if l.metrics != nil {
			l.metrics.RecordRejection()
		}
		return Decision{
			Allowed:    false,
			Limit:      l.max,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	if l.metrics != nil {
		l.metrics.RecordAllowed()
	}
	return Decision{
		Allowed:   true,
		Limit:     l.max,
		Remaining: l.max - w.count,
		ResetAt:   resetAt,
	}
}

// Sweep drops windows idle for longer than the window size. Maintenance
// path; the hot path never iterates the table.
func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0
	l.windows.Range(func(key, v any) bool {
		k := key.(string)
		l.locks.Lock(k)
		if w := v.(*window); now.Sub(w.start) > l.window {
			l.windows.Delete(key)
			removed++
		}
		l.locks.Unlock(k)
		return true
	})
	return removed
}
