// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package notify

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// execTimeout bounds every shell-out; a hung desktop helper must not stall
// the alert path.
const execTimeout = 3 * time.Second

// DesktopOptions configures the exec-backed collaborators.
type DesktopOptions struct {
	AppWindow string // window title used for raise requests
	SoundFile string // alert sound path; empty disables sound
}

// DesktopSet bundles the three collaborators for daemon wiring.
type DesktopSet struct {
	Notifier Notifier
	Raiser   WindowRaiser
	Sound    SoundPlayer
}

func run(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()
	if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func hasBinary(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
