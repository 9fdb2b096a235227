// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldAlertID       = "alert_id"

	// Process / stream fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldSignal    = "signal"
	FieldCategory  = "category"
	FieldCode      = "code"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldPosture  = "posture"

	// Path / network fields
	FieldPath = "path"
	FieldAddr = "addr"
)
