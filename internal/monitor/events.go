// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package monitor

import "time"

// Event type values.
const (
	EventState   = "state"
	EventAlert   = "alert"
	EventSession = "session"
)

// Event is one item on the controller's event stream. State events carry
// From/To/Cause, alert events Kind/Title/Body, session events the session
// lifecycle Cause ("started" or a stop reason).
type Event struct {
	Type      string    `json:"type"`
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Cause     string    `json:"cause,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
}
