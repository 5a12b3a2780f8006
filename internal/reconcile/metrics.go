package reconcile

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncChangesTotal   *prometheus.CounterVec
	auditFindingsTotal *prometheus.CounterVec

	// Registration guard
	metricsOnce sync.Once
)

// initMetrics registers the reconciliation metrics lazily so importing
// the package has no side effects on the default registry.
func initMetrics() {
	metricsOnce.Do(func() {
		syncChangesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretsync_sync_changes_total",
				Help: "Total number of store mutations applied by sync",
			},
			[]string{"kind"},
		)

		auditFindingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretsync_audit_findings_total",
				Help: "Total number of audit findings by classification",
			},
			[]string{"classification"},
		)
	})
}
