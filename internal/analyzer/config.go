// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package analyzer supervises the external posture analysis process: launch,
// output capture, and graceful-then-forced shutdown.
package analyzer

import (
	"errors"
	"fmt"
	"strconv"
)

// DefaultPython is the interpreter used when Config.Python is empty.
const DefaultPython = "python3"

// Config describes one analyzer launch. Arguments are derived from it
// deterministically; the process cannot be reconfigured while live.
type Config struct {
	Script      string  // path to the analysis script
	Python      string  // interpreter binary, DefaultPython when empty
	Interval    float64 // seconds between posture checks
	Camera      int     // camera device index
	Sensitivity float64 // detection sensitivity 0.0-1.0
	Verbose     bool    // verbose analyzer logging on the diagnostic channel
}

// Validate mirrors the argument checks the analyzer itself performs, so bad
// values fail here instead of as an opaque child exit.
func (c Config) Validate() error {
	if c.Script == "" {
		return errors.New("script path is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Camera < 0 {
		return fmt.Errorf("camera index must be non-negative, got %d", c.Camera)
	}
	if c.Sensitivity < 0 || c.Sensitivity > 1 {
		return fmt.Errorf("sensitivity must be between 0.0 and 1.0, got %v", c.Sensitivity)
	}
	return nil
}

// Args renders the launch argument vector: script path first, then flags,
// always requesting the structured JSON output format.
func (c Config) Args() []string {
	args := []string{
		c.Script,
		"--interval", strconv.FormatFloat(c.Interval, 'f', -1, 64),
		"--camera", strconv.Itoa(c.Camera),
		"--sensitivity", strconv.FormatFloat(c.Sensitivity, 'f', -1, 64),
		"--json",
	}
	if c.Verbose {
		args = append(args, "--verbose")
	}
	return args
}

func (c Config) python() string {
	if c.Python == "" {
		return DefaultPython
	}
	return c.Python
}
