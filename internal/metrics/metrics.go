// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageOutcomes counts stage completions by stage and outcome
	// (ok, failed, fallback).
	StageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finecho",
		Subsystem: "pipeline",
		Name:      "stage_outcomes_total",
		Help:      "Pipeline stage completions by stage and outcome.",
	}, []string{"stage", "outcome"})

	// StageDuration observes per-stage wall time.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "finecho",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage durations in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage"})

	// RunsCompleted counts full pipeline runs by terminal status.
	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finecho",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Pipeline runs by terminal call status.",
	}, []string{"status"})

	// QueueDepth tracks jobs waiting in the in-process queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "finecho",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Jobs currently queued for processing.",
	})

	// DuplicateRuns counts pipeline triggers rejected because a run for
	// the same call id was already in flight.
	DuplicateRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "finecho",
		Subsystem: "queue",
		Name:      "duplicate_runs_total",
		Help:      "Pipeline triggers suppressed by the per-call-id guard.",
	})
)
