package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_session_starts_total",
		Help: "Monitoring session start attempts by outcome",
	}, []string{"outcome"}) // outcome=started|already_running|launch_failure

	sessionStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_session_stops_total",
		Help: "Monitoring session stop requests by outcome",
	}, []string{"outcome"}) // outcome=graceful|forced|noop

	sessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uprightd_session_active",
		Help: "Whether a monitoring session is currently active (1) or not (0)",
	})

	sessionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uprightd_session_duration_seconds",
		Help:    "Duration of completed monitoring sessions",
		Buckets: []float64{10, 60, 300, 900, 1800, 3600, 7200, 14400, 28800},
	})

	sensitivityUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uprightd_sensitivity_updates_total",
		Help: "Total number of live sensitivity updates (analyzer restart cycles)",
	})

	streamFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_stream_failures_total",
		Help: "Analyzer stream failures by kind",
	}, []string{"kind"}) // kind=exit|stdout_closed|launch
)

// IncSessionStart records a session start attempt outcome.
func IncSessionStart(outcome string) { sessionStartsTotal.WithLabelValues(outcome).Inc() }

// IncSessionStop records a session stop outcome.
func IncSessionStop(outcome string) { sessionStopsTotal.WithLabelValues(outcome).Inc() }

// SetSessionActive flips the active-session gauge.
func SetSessionActive(active bool) {
	if active {
		sessionActive.Set(1)
	} else {
		sessionActive.Set(0)
	}
}

// ObserveSessionDuration records the wall-clock duration of a finished session.
func ObserveSessionDuration(d time.Duration) {
	sessionDurationSeconds.Observe(d.Seconds())
}

// IncSensitivityUpdate records one live sensitivity restart cycle.
func IncSensitivityUpdate() { sensitivityUpdatesTotal.Inc() }

// IncStreamFailure records an analyzer stream failure.
func IncStreamFailure(kind string) { streamFailuresTotal.WithLabelValues(kind).Inc() }
