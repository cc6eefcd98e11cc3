package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	Resolutions     *prometheus.CounterVec
	ResolveDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_tenant_cache_hits_total",
			Help: "Total tenant resolution cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_tenant_cache_misses_total",
			Help: "Total tenant resolution cache misses",
		}),
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aureon_tenant_resolutions_total",
			Help: "Tenant resolutions by signal and outcome",
		}, []string{"signal", "outcome"}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "aureon_tenant_resolve_duration_seconds",
			Help:    "Duration of tenant resolution (request critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) RecordCacheHit()  { m.CacheHits.Inc() }
func (m *Metrics) RecordCacheMiss() { m.CacheMisses.Inc() }

func (m *Metrics) RecordResolution(signal, outcome string) {
	m.Resolutions.WithLabelValues(signal, outcome).Inc()
}

func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}
