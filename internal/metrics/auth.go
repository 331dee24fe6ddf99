package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Authentication metrics. Kept in a leaf package so services can record
// without importing the HTTP layer.

var (
	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Authentication attempts by flow, provider and result",
	}, []string{"flow", "provider", "result"})

	ProviderVerifyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_verify_duration_seconds",
		Help:    "Latency of social credential verification",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"provider", "result"})

	AccountsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_created_total",
		Help: "Accounts created, by provider (\"password\" for signup)",
	}, []string{"provider"})

	ThrottleLockouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "login_throttle_lockouts_total",
		Help: "Throttle keys locked after reaching the attempt limit",
	})

	SigningKeyFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signing_key_fetches_total",
		Help: "Provider signing key set fetches by result",
	}, []string{"result"})

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Login events that could not be stored",
	})
)

// Register registers the auth metrics on reg (or the default registerer if
// nil). Duplicate registration is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		AuthAttempts, ProviderVerifyDuration, AccountsCreated,
		ThrottleLockouts, SigningKeyFetches, AuditWriteFailures,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// Result labels a success or failure.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
