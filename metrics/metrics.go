// Package metrics holds the Prometheus collectors of the store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kgraph_mutations_total",
		Help: "Structured-object mutations by mode and outcome kind.",
	}, []string{"mode", "outcome"})

	ApplyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kgraph_apply_seconds",
		Help:    "Time spent in a lifecycle operation, validation through report.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	StatementsChanged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kgraph_statements_changed_total",
		Help: "Statements added or removed by lifecycle operations.",
	}, []string{"change"})

	RollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kgraph_rollbacks_total",
		Help: "Apply rollbacks by result (completed or failed).",
	}, []string{"result"})

	OrphansFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kgraph_audit_orphans_total",
		Help: "Orphaned or mistagged statements reported by audits.",
	})

	OrphansPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kgraph_audit_pruned_total",
		Help: "Statements removed by pruning audits.",
	})

	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kgraph_queries_total",
		Help: "Filtered queries by execution path.",
	}, []string{"path"})

	OpenSpaces = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kgraph_open_spaces",
		Help: "Number of spaces with an open database handle.",
	})
)

// Outcome labels for MutationsTotal besides the error kinds.
const OutcomeOK = "ok"

// Result labels for RollbacksTotal.
const (
	RollbackCompleted = "completed"
	RollbackFailed    = "failed"
)
