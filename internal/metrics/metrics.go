package metrics

import (
	"net/http"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "otp_auth"

// Metrics holds the counters recorded by the login flow.
type Metrics struct {
	registry      *prometheus.Registry
	CodesIssued   *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	Refreshes     *prometheus.CounterVec
	Revocations   *prometheus.CounterVec
	Suspicious    *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CodesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codes_issued_total",
			Help:      "Verification codes issued, by purpose and identifier kind.",
		}, []string{"purpose", "kind"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Code verification outcomes.",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Token refresh attempts by outcome.",
		}, []string{"result"}),
		Revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_revocations_total",
			Help:      "Sessions revoked, by reason.",
		}, []string{"reason"}),
		Suspicious: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_signals_total",
			Help:      "Suspicious activity signals raised during login.",
		}, []string{"reason"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_deliveries_total",
			Help:      "Code delivery attempts by channel kind and outcome.",
		}, []string{"kind", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.CodesIssued,
		m.Verifications,
		m.Logins,
		m.Refreshes,
		m.Revocations,
		m.Suspicious,
		m.Deliveries,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

var outcomes = map[error]string{
	errors.ErrValidation:       "validation",
	errors.ErrNotFound:         "not_found",
	errors.ErrAlreadyUsed:      "already_used",
	errors.ErrRateLimited:      "rate_limited",
	errors.ErrExpired:          "expired",
	errors.ErrAttemptsExceeded: "attempts_exceeded",
	errors.ErrMismatch:         "mismatch",
	errors.ErrUnauthorized:     "unauthorized",
	errors.ErrUnavailable:      "unavailable",
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	if o, ok := outcomes[errors.KindOf(err)]; ok {
		return o
	}
	return "error"
}
