package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postureEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_posture_events_total",
		Help: "Decoded analyzer events by type",
	}, []string{"type"}) // type=posture|error|status

	decodeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uprightd_decode_failures_total",
		Help: "Total number of analyzer output lines that failed to decode",
	})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_alerts_total",
		Help: "Alerts raised by category",
	}, []string{"category"}) // category=leaning|dwell|error|stream

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_notifications_total",
		Help: "Desktop notification deliveries by channel and outcome",
	}, []string{"channel", "outcome"}) // outcome=sent|suppressed|error

	displayedState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uprightd_displayed_state",
		Help: "Currently displayed posture state (exactly one label is 1)",
	}, []string{"state"}) // state=upright|leaning|undetermined
)

// IncPostureEvent records one decoded analyzer event of the given type.
func IncPostureEvent(eventType string) { postureEventsTotal.WithLabelValues(eventType).Inc() }

// IncDecodeFailure records an undecodable analyzer output line.
func IncDecodeFailure() { decodeFailuresTotal.Inc() }

// IncAlert records a raised alert.
func IncAlert(category string) { alertsTotal.WithLabelValues(category).Inc() }

// IncNotification records a notification delivery outcome for a channel.
func IncNotification(channel, outcome string) {
	notificationsTotal.WithLabelValues(channel, outcome).Inc()
}

// SetDisplayedState marks the given state as displayed and clears the others.
func SetDisplayedState(state string) {
	for _, s := range []string{"upright", "leaning", "undetermined"} {
		v := 0.0
		if s == state {
			v = 1
		}
		displayedState.WithLabelValues(s).Set(v)
	}
}
