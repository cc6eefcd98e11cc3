package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Allowed    prometheus.Counter
	Rejections prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Allowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_ratelimit_allowed_total",
			Help: "Requests admitted by the fixed-window limiter",
		}),
		Rejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_ratelimit_rejections_total",
			Help: "Requests rejected by the fixed-window limiter",
		}),
	}
}

func (m *Metrics) RecordAllowed()   { m.Allowed.Inc() }
func (m *Metrics) RecordRejection() { m.Rejections.Inc() }
