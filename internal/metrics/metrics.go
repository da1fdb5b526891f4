package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PassesIssued counts issued passes by issuance mode
	PassesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passdeck_passes_issued_total",
			Help: "Number of passes issued",
		},
		[]string{"mode"}, // immediate or scheduled
	)

	// SweepItems counts per-item sweep outcomes
	SweepItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passdeck_sweep_items_total",
			Help: "Sweep item outcomes by sweep type",
		},
		[]string{"sweep", "outcome"}, // processed, skipped or failed
	)

	// SweepDuration tracks the latency of one sweep run
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "passdeck_sweep_duration_seconds",
			Help:    "Duration of sweep runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"sweep"},
	)

	// RemindersSent counts reminder sends that won the state gate
	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "passdeck_reminders_sent_total",
			Help: "Number of expiration reminders emitted",
		},
	)
)

// RecordSweepItem records one sweep item outcome.
func RecordSweepItem(sweep, outcome string) {
	SweepItems.WithLabelValues(sweep, outcome).Inc()
}

// RecordSweepDuration records the duration of a sweep run.
func RecordSweepDuration(sweep string, seconds float64) {
	SweepDuration.WithLabelValues(sweep).Observe(seconds)
}
