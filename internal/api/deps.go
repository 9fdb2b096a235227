// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"

	"github.com/ManuGH/uprightd/internal/bus"
	"github.com/ManuGH/uprightd/internal/monitor"
)

// MonitorController is the session lifecycle surface the API depends on.
// Implemented by monitor.Controller; tests substitute a stub.
type MonitorController interface {
	StartMonitoring(ctx context.Context) (monitor.Status, error)
	StopMonitoring() monitor.Status
	UpdateSensitivity(ctx context.Context, v float64) (monitor.Status, error)
	Status() monitor.Status
	Events() *bus.Topic[monitor.Event]
}
