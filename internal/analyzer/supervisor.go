// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package analyzer

import (
	"context"
	"sync"
	"time"
)

// Supervisor owns at most one live analyzer process.
type Supervisor struct {
	mu    sync.Mutex
	proc  *Process
	grace time.Duration
}

// NewSupervisor creates a Supervisor. A non-positive grace falls back to
// DefaultGrace.
func NewSupervisor(grace time.Duration) *Supervisor {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Supervisor{grace: grace}
}

// Start launches a new analyzer. It fails with ErrAlreadyRunning while a
// prior process has not been released via Stop.
func (s *Supervisor) Start(ctx context.Context, cfg Config) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		return nil, ErrAlreadyRunning
	}

	p, err := Launch(ctx, cfg, s.grace)
	if err != nil {
		return nil, err
	}
	s.proc = p
	return p, nil
}

// Stop terminates and releases the current process. Calling it with nothing
// running is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	p := s.proc
	s.proc = nil
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Stop()
}

// Release forgets the current process without terminating it. Used after an
// unsolicited exit, when there is nothing left to stop.
func (s *Supervisor) Release(p *Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == p {
		s.proc = nil
	}
}

// Current returns the live process, or nil.
func (s *Supervisor) Current() *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc
}
