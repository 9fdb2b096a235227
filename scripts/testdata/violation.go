package violation

import "github.com/ManuGH/uprightd/internal/alerting"

func Violate() {
	// Violation 1: claiming a decided state via constant
	var s = alerting.StateLeaning
	_ = s

	// Violation 2: raw literal
	_ = "upright"

	// Allowed: the neutral state
	var n = alerting.StateUndetermined
	_ = n
}
