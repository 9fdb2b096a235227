// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package history records monitoring sessions and the alerts they produced,
// for the UI's history view.
package history

import (
	"context"
	"time"
)

// Stop reasons recorded on session end.
const (
	StopUser        = "stopped"
	StopSensitivity = "sensitivity_change"
	StopStream      = "stream_failure"
	StopShutdown    = "shutdown"
)

// Session is one monitoring run.
type Session struct {
	ID          string
	StartedAt   time.Time
	EndedAt     time.Time // zero while running
	Sensitivity float64
	Interval    float64
	Camera      int
	StopReason  string
}

// Alert is one fired alert, attributed to its session.
type Alert struct {
	ID        int64
	SessionID string
	At        time.Time
	Kind      string
	Title     string
	Body      string
}

// Store persists sessions and alerts.
type Store interface {
	StartSession(ctx context.Context, s Session) error
	EndSession(ctx context.Context, id string, endedAt time.Time, stopReason string) error
	RecordAlert(ctx context.Context, a Alert) error
	RecentAlerts(ctx context.Context, limit int) ([]Alert, error)
	Sessions(ctx context.Context, limit int) ([]Session, error)
	Close() error
}

// Open returns the sqlite-backed store at path, or the Nop store when no
// path is configured.
func Open(path string) (Store, error) {
	if path == "" {
		return Nop{}, nil
	}
	return NewSqliteStore(path)
}
