package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the DID lifecycle.
type Metrics struct {
	DIDsCreated         prometheus.Counter
	DIDsRevoked         prometheus.Counter
	AnchorFailures      prometheus.Counter
	CascadedRevocations prometheus.Counter
	CascadeFailures     prometheus.Counter
}

// New creates and registers all DID lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		DIDsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_dids_created_total",
			Help: "Total number of DIDs created.",
		}),
		DIDsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_dids_revoked_total",
			Help: "Total number of DIDs revoked.",
		}),
		AnchorFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_did_anchor_failures_total",
			Help: "Total number of failed DID ledger anchoring attempts.",
		}),
		CascadedRevocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_did_cascaded_revocations_total",
			Help: "Total number of credentials revoked by DID revocation cascades.",
		}),
		CascadeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorid_did_cascade_failures_total",
			Help: "Total number of credentials that failed to revoke during cascades.",
		}),
	}
}
