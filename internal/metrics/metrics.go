// Package metrics exposes the engine's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogtree_turns_total",
			Help: "Total number of turns processed, by outcome",
		},
		[]string{"outcome"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dialogtree_turn_duration_seconds",
			Help:    "Duration of turn processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SlotsFilled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dialogtree_slots_filled_total",
			Help: "Total number of slots filled",
		},
	)

	Digressions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dialogtree_digressions_total",
			Help: "Total number of digressions into another node",
		},
	)

	DirectiveLoopAborts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dialogtree_directive_loop_aborts_total",
			Help: "Turns aborted because the directive iteration bound was exceeded",
		},
	)

	EvaluatorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogtree_evaluator_failures_total",
			Help: "Condition or template evaluations that failed and were degraded",
		},
		[]string{"kind"},
	)
)
