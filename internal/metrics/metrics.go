package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationOutcomes counts reserve calls by final outcome
	// (confirmed, failed, conflict, rejected_capacity, lock_timeout, error).
	ReservationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightcore_reservation_outcomes_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})

	ReconcilerFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightcore_reconciler_flushes_total",
		Help: "Reconciliation batch flushes by result.",
	}, []string{"result"})

	ReconcilerDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flightcore_reconciler_dropped_events_total",
		Help: "Seat-update events dropped because the queue was full.",
	})

	PrecomputeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightcore_precompute_runs_total",
		Help: "Path precomputation runs by mode and result.",
	}, []string{"mode", "result"})
)
