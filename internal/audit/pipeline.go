// Package audit implements the batched audit pipeline: events are queued in
// memory and flushed in bulk on a timer or when the batch threshold fills.
// Failed flushes requeue at the front of the queue up to a hard cap; a
// synchronous path bypasses the queue for high-severity security events and
// PHI access, where durability must not be deferred past a process crash.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"aureon/internal/audit/metrics"
	"aureon/internal/audit/models"
	"aureon/internal/audit/redact"
	"aureon/internal/audit/store"
	tenantmodels "aureon/internal/tenant/models"
	"aureon/internal/tracer"
)

// hipaaRetentionFlag is the tenant compliance setting selecting the
// extended retention window.
const hipaaRetentionFlag = "hipaa_retention"

// Pipeline is the audit event collector. Safe for concurrent use by every
// in-flight request.
type Pipeline struct {
	store store.Store

	batchSize     int
	flushInterval time.Duration
	queueCap      int

	mu    sync.Mutex
	queue []*models.Entry
	kick  chan struct{}

	dropped atomic.Int64

	logger  *slog.Logger
	metrics *metrics.Metrics
	trace   tracer.Tracer
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets the flush threshold and maximum batch size.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets the timer-driven flush period.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// WithQueueCap sets the hard backlog bound. Entries beyond the cap are
// dropped, oldest kept (they have been waiting longest to be durable).
func WithQueueCap(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.queueCap = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTracer sets the tracer for flush spans.
func WithTracer(t tracer.Tracer) Option {
	return func(p *Pipeline) {
		p.trace = t
	}
}

// WithClock overrides the clock. Test use only.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New constructs a Pipeline. Defaults: batch 100, flush every 5s, backlog
// cap 10000.
func New(st store.Store, opts ...Option) (*Pipeline, error) {
	if st == nil {
		return nil, errors.New("audit store is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		store:         st,
		batchSize:     100,
		flushInterval: 5 * time.Second,
		queueCap:      10000,
		kick:          make(chan struct{}, 1),
		logger:        slog.Default(),
		trace:         tracer.NewNoop(),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start launches the background flush loop.
func (p *Pipeline) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop cancels the flush loop, waits for it, and drains whatever is still
// queued. Call before tearing down the store connection.
func (p *Pipeline) Stop(ctx context.Context) {
	p.cancel()
	p.wg.Wait()

	for {
		if flushed := p.flushOnce(ctx); flushed == 0 {
			return
		}
		select {
		case <-ctx.Done():
			p.logger.Warn("audit drain aborted", "pending", p.QueueDepth())
			return
		default:
		}
	}
}

// Record enqueues one event. Never blocks on the store and never fails the
// caller: when the backlog cap is hit, the newest entries are dropped and
// counted. High-severity entries take the immediate path instead.
func (p *Pipeline) Record(entry *models.Entry, tenant *tenantmodels.Context) {
	p.prepare(entry, tenant)

	if entry.Severity.IsImmediate() {
		// Durability over latency for security events and PHI access.
		p.writeImmediate(context.Background(), entry)
		return
	}

	p.mu.Lock()
	if len(p.queue) >= p.queueCap {
		p.mu.Unlock()
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.AddDropped(1)
		}
		p.logger.Error("audit entry dropped at backlog cap",
			"tenant_id", entry.TenantID.String(), "action", entry.Action)
		return
	}
	p.queue = append(p.queue, entry)
	depth := len(p.queue)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.SetQueueDepth(depth)
	}
	if depth >= p.batchSize {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// RecordImmediate bypasses the queue and writes synchronously.
func (p *Pipeline) RecordImmediate(ctx context.Context, entry *models.Entry, tenant *tenantmodels.Context) error {
	p.prepare(entry, tenant)
	return p.writeImmediate(ctx, entry)
}

func (p *Pipeline) writeImmediate(ctx context.Context, entry *models.Entry) error {
	if err := p.store.Insert(ctx, entry); err != nil {
		// Audit failure must not fail the originating request; fall back
		// to the queue so the entry still gets a delivery attempt.
		p.logger.Error("immediate audit write failed, queueing entry",
			"entry_id", entry.ID, "error", err)
		p.enqueueFront([]*models.Entry{entry})
		return err
	}
	if p.metrics != nil {
		p.metrics.RecordImmediate()
	}
	return nil
}

// Dropped reports how many entries were discarded at the backlog cap.
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

// QueueDepth reports the current backlog size.
func (p *Pipeline) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// prepare stamps derived fields and redacts snapshots. Runs at enqueue
// time so a dropped entry never held clear-text secrets in the queue.
func (p *Pipeline) prepare(entry *models.Entry, tenant *tenantmodels.Context) {
	if tenant != nil {
		if entry.TenantID.IsNil() {
			entry.TenantID = tenant.ID
		}
		if tenant.ComplianceFlag(hipaaRetentionFlag) {
			entry.HIPAARetention = true
		}
	}
	entry.OldValues = redact.Map(entry.OldValues)
	entry.NewValues = redact.Map(entry.NewValues)
	entry.Finalize(p.now())
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.flushOnce(context.Background())
		case <-p.kick:
			p.flushOnce(context.Background())
		}
	}
}

// flushOnce writes up to one batch and returns how many entries it flushed.
// On failure the batch returns to the front of the queue, bounded by the
// cap, so enqueue order is preserved for the next attempt.
func (p *Pipeline) flushOnce(ctx context.Context) int {
	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return 0
	}
	n := len(p.queue)
	if n > p.batchSize {
		n = p.batchSize
	}
	batch := p.queue[:n:n]
	p.queue = p.queue[n:]
	p.mu.Unlock()

	start := p.now()
	_, span := p.trace.Start(ctx, tracer.SpanAuditFlush, tracer.BatchSize(len(batch)))

	err := p.store.InsertBatch(ctx, batch)

	if p.metrics != nil {
		p.metrics.ObserveFlush(p.now().Sub(start))
	}

	if err != nil {
		span.End(err)
		if p.metrics != nil {
			p.metrics.RecordFlushFailure()
		}
		p.logger.Error("audit flush failed, requeueing batch",
			"batch_size", len(batch), "error", err)
		p.enqueueFront(batch)
		return 0
	}

	span.SetAttributes(tracer.QueueDepth(p.QueueDepth()))
	span.End(nil)
	if p.metrics != nil {
		p.metrics.AddWritten(len(batch))
		p.metrics.SetQueueDepth(p.QueueDepth())
	}
	return len(batch)
}

// enqueueFront returns entries to the head of the queue, dropping from the
// tail when the cap would be exceeded.
func (p *Pipeline) enqueueFront(entries []*models.Entry) {
	p.mu.Lock()
	p.queue = append(entries, p.queue...)
	overflow := len(p.queue) - p.queueCap
	if overflow > 0 {
		p.queue = p.queue[:p.queueCap]
	}
	depth := len(p.queue)
	p.mu.Unlock()

	if overflow > 0 {
		p.dropped.Add(int64(overflow))
		if p.metrics != nil {
			p.metrics.AddDropped(overflow)
		}
		p.logger.Error("audit backlog cap exceeded", "dropped", overflow)
	}
	if p.metrics != nil {
		p.metrics.SetQueueDepth(depth)
	}
}
