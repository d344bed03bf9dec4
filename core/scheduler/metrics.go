package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pcwa-smotley/abayopt/core/model"
)

var (
	solveDuration *prometheus.HistogramVec
	solveTotal    *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec) {
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schedule_solve_duration_seconds",
			Help:    "Wall-clock duration of schedule solves",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	tot := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_solves_total",
			Help: "Number of schedule solves by outcome",
		},
		[]string{"status"},
	)
	return dur, tot
}

func init() {
	solveDuration, solveTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduler metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(solveDuration, solveTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	solveDuration, solveTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observeSolve(status model.SolverStatus, d time.Duration) {
	solveDuration.WithLabelValues(status.String()).Observe(d.Seconds())
	solveTotal.WithLabelValues(status.String()).Inc()
}
