// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package history

import (
	"context"
	"time"
)

// Nop discards everything. Used when no data directory is configured.
type Nop struct{}

func (Nop) StartSession(context.Context, Session) error { return nil }

func (Nop) EndSession(context.Context, string, time.Time, string) error { return nil }

func (Nop) RecordAlert(context.Context, Alert) error { return nil }

func (Nop) RecentAlerts(context.Context, int) ([]Alert, error) { return nil, nil }

func (Nop) Sessions(context.Context, int) ([]Session, error) { return nil, nil }

func (Nop) Close() error { return nil }

var _ Store = Nop{}
