// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package prefs persists the small set of user preferences the alerting
// path reads: whether sound alerts are enabled and the detection
// sensitivity last chosen in the UI.
package prefs

import "fmt"

// Defaults applied when a preference has never been written.
const (
	DefaultSoundEnabled = true
	DefaultSensitivity  = 0.4
)

// Store is the persisted preference surface.
type Store interface {
	SoundEnabled() (bool, error)
	SetSoundEnabled(bool) error
	Sensitivity() (float64, error)
	SetSensitivity(float64) error
	Close() error
}

func validSensitivity(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("sensitivity must be between 0.0 and 1.0, got %v", v)
	}
	return nil
}
