// Package metrics exposes Prometheus counters for the authentication
// core. All methods are nil-safe so components can run without metrics
// wired.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes reported on the logins_total counter.
const (
	OutcomeSuccess            = "success"
	OutcomeRateLimited        = "rate_limited"
	OutcomeCaptchaRejected    = "captcha_rejected"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// Metrics is the counter set for the auth core.
type Metrics struct {
	logins             *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	rateLimited        prometheus.Counter
	csrfFailures       prometheus.Counter
}

// New registers the counter set on reg. Passing nil uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		tokenVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "token_verifications_total",
			Help:      "Token verifications by result.",
		}, []string{"result"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		csrfFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "csrf_failures_total",
			Help:      "Requests rejected by double-submit CSRF verification.",
		}),
	}
}

// ObserveLogin records a login attempt outcome.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
	if outcome == OutcomeRateLimited {
		m.rateLimited.Inc()
	}
}

// ObserveVerification records a token verification result label such as
// "ok", "expired", "revoked", "malformed", or "type_mismatch".
func (m *Metrics) ObserveVerification(result string) {
	if m == nil {
		return
	}
	m.tokenVerifications.WithLabelValues(result).Inc()
}

// ObserveCsrfFailure records a double-submit verification failure.
func (m *Metrics) ObserveCsrfFailure() {
	if m == nil {
		return
	}
	m.csrfFailures.Inc()
}
