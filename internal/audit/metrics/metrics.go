package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	QueueDepth      prometheus.Gauge
	FlushDuration   prometheus.Histogram
	EntriesWritten  prometheus.Counter
	EntriesDropped  prometheus.Counter
	FlushFailures   prometheus.Counter
	ImmediateWrites prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "aureon_audit_queue_depth",
			Help: "Entries currently waiting in the audit batch queue",
		}),
		FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "aureon_audit_flush_duration_seconds",
			Help:    "Duration of audit batch flushes",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		EntriesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_audit_entries_written_total",
			Help: "Audit entries durably written",
		}),
		EntriesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_audit_entries_dropped_total",
			Help: "Audit entries dropped at the backlog cap",
		}),
		FlushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_audit_flush_failures_total",
			Help: "Failed audit batch writes",
		}),
		ImmediateWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_audit_immediate_writes_total",
			Help: "Audit entries written via the immediate path",
		}),
	}
}

func (m *Metrics) SetQueueDepth(depth int) { m.QueueDepth.Set(float64(depth)) }

func (m *Metrics) ObserveFlush(d time.Duration) {
	m.FlushDuration.Observe(d.Seconds())
}

func (m *Metrics) AddWritten(n int)    { m.EntriesWritten.Add(float64(n)) }
func (m *Metrics) AddDropped(n int)    { m.EntriesDropped.Add(float64(n)) }
func (m *Metrics) RecordFlushFailure() { m.FlushFailures.Inc() }
func (m *Metrics) RecordImmediate()    { m.ImmediateWrites.Inc() }
