// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package alerting

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Humanize maps raw technical error text to a short user-facing message.
// Classification is a case-insensitive substring match, checked in order:
// "posture" before "camera" before "monitor", so a message naming several
// subsystems resolves to the first match. Input is NFC-normalized first
// because it originates from an external process.
func Humanize(message string) string {
	msg := strings.ToLower(norm.NFC.String(message))
	switch {
	case strings.Contains(msg, "posture"):
		return "No person detected"
	case strings.Contains(msg, "camera"):
		return "Camera hardware error"
	case strings.Contains(msg, "monitor"):
		return "Subscription error"
	default:
		return "Detection process error"
	}
}
