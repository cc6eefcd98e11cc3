package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Denials *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aureon_authz_denials_total",
			Help: "Authorization denials by check and error code",
		}, []string{"check", "code"}),
	}
}

func (m *Metrics) RecordDenial(check, code string) {
	m.Denials.WithLabelValues(check, code).Inc()
}
