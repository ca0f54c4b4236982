package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the credential lifecycle.
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked prometheus.Counter
	CredentialsExpired prometheus.Counter
	Reconciliations    prometheus.Counter
	AnchorFailures     prometheus.Counter
}

// New creates and registers all credential lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_credentials_issued_total",
			Help: "Total number of credentials issued.",
		}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_credentials_revoked_total",
			Help: "Total number of credentials revoked.",
		}),
		CredentialsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_credentials_expired_total",
			Help: "Total number of credentials swept to expired during verification.",
		}),
		Reconciliations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_credential_reconciliations_total",
			Help: "Total number of local statuses converged to the ledger view.",
		}),
		AnchorFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_credential_anchor_failures_total",
			Help: "Total number of failed credential ledger anchoring attempts.",
		}),
	}
}
