// Package metrics exposes the ledger's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecalculationTotal counts recalculation runs by outcome.
	RecalculationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsledger_recalculation_total",
		Help: "Invoice recalculation runs by outcome.",
	}, []string{"outcome"})

	// StatusTransitionTotal counts derived and manual status transitions.
	StatusTransitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsledger_invoice_status_transition_total",
		Help: "Invoice status transitions.",
	}, []string{"from", "to"})

	// SequenceFallbackTotal counts uses of the best-effort scan fallback.
	SequenceFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opsledger_sequence_fallback_total",
		Help: "Document number assignments served by the non-atomic fallback.",
	})

	// ReconcileRunTotal counts reconciliation passes by outcome.
	ReconcileRunTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsledger_reconcile_run_total",
		Help: "Stale-invoice reconciliation passes by outcome.",
	}, []string{"outcome"})
)
