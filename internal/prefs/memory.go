// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import "sync"

// Memory is an in-process Store for tests and headless runs. Nothing
// survives a restart.
type Memory struct {
	mu          sync.Mutex
	sound       bool
	sensitivity float64
}

// NewMemory creates a Memory store pre-loaded with the defaults.
func NewMemory() *Memory {
	return &Memory{sound: DefaultSoundEnabled, sensitivity: DefaultSensitivity}
}

func (s *Memory) SoundEnabled() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sound, nil
}

func (s *Memory) SetSoundEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sound = enabled
	return nil
}

func (s *Memory) Sensitivity() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensitivity, nil
}

func (s *Memory) SetSensitivity(v float64) error {
	if err := validSensitivity(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensitivity = v
	return nil
}

func (s *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
