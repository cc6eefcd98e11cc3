package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Logins       *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec
	TokensIssued prometheus.Counter
	Refreshes    *prometheus.CounterVec
	Revocations  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aureon_auth_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aureon_auth_failures_total",
			Help: "Request authentication failures by error code",
		}, []string{"code"}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aureon_auth_tokens_issued_total",
			Help: "Access/refresh token pairs issued",
		}),
		Refreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aureon_auth_refreshes_total",
			Help: "Token refresh attempts by outcome",
		}, []string{"outcome"}),
		Revocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aureon_auth_session_revocations_total",
			Help: "Session revocations by scope (single or all)",
		}, []string{"scope"}),
	}
}

func (m *Metrics) RecordLogin(outcome string)   { m.Logins.WithLabelValues(outcome).Inc() }
func (m *Metrics) RecordFailure(code string)    { m.AuthFailures.WithLabelValues(code).Inc() }
func (m *Metrics) RecordTokensIssued()          { m.TokensIssued.Inc() }
func (m *Metrics) RecordRefresh(outcome string) { m.Refreshes.WithLabelValues(outcome).Inc() }
func (m *Metrics) RecordRevocation(scope string) {
	m.Revocations.WithLabelValues(scope).Inc()
}
