// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/uprightd/internal/config"
	"github.com/ManuGH/uprightd/internal/log"
)

// PerformStartupChecks validates the environment and dependencies before starting the server.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	// 1. Data Directory Permissions
	if cfg.DataDir != "" {
		if err := checkDataDir(logger, cfg.DataDir); err != nil {
			return fmt.Errorf("data directory check failed: %w", err)
		}
	} else {
		logger.Warn().Msg("no data directory configured; history and preferences are in-memory only")
	}

	// 2. Targeted Validations
	if err := checkTargetedValidations(logger, cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	// MkdirAll returns nil if exists
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("failed to ensure data directory %s: %w", path, err)
	}

	// Check write permissions by creating a temp file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(path)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str(log.FieldPath, path).
			Msg("data directory is under temp; history and preferences may be lost on reboot")
	}

	logger.Info().Str(log.FieldPath, path).Msg("✓ Data directory is writable")
	return nil
}

// checkTargetedValidations performs security and runtime-critical validations
func checkTargetedValidations(logger zerolog.Logger, cfg config.AppConfig) error {
	// a. Listen Address (Parseable)
	_, port, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.Listen, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, cfg.Listen)
	}
	logger.Info().Str(log.FieldAddr, cfg.Listen).Msg("✓ Listen address is valid")

	// b. Analyzer script + interpreter
	if cfg.Analyzer.Script == "" {
		logger.Warn().Msg("analyzer script not configured; running in setup mode")
	} else {
		if err := checkFileReadable(cfg.Analyzer.Script); err != nil {
			if cfg.Analyzer.AutoStart {
				return fmt.Errorf("analyzer script error: %w", err)
			}
			logger.Warn().
				Err(err).
				Str(log.FieldPath, cfg.Analyzer.Script).
				Msg("analyzer script not readable; monitoring start will fail until fixed")
		}

		python := strings.TrimSpace(cfg.Analyzer.Python)
		if python == "" {
			python = "python3"
		}
		if _, err := exec.LookPath(python); err != nil {
			if cfg.Analyzer.AutoStart {
				return fmt.Errorf("python interpreter not found (%s): %w", python, err)
			}
			logger.Warn().
				Str("python", python).
				Msg("python interpreter not found; monitoring start will fail until installed")
		} else {
			logger.Info().Str("python", python).Msg("✓ Analyzer dependencies available")
		}
	}

	// c. Notification sound file (optional, but must be readable when set)
	if cfg.Notify.SoundFile != "" {
		if err := checkFileReadable(cfg.Notify.SoundFile); err != nil {
			return fmt.Errorf("notification sound file error: %w", err)
		}
		logger.Info().Str(log.FieldPath, cfg.Notify.SoundFile).Msg("✓ Notification sound file is readable")
	}

	if cfg.Prefs.Backend == "memory" {
		logger.Warn().
			Str("prefs_backend", cfg.Prefs.Backend).
			Msg("preferences use in-memory store; settings are not persistent across restarts")
	}

	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
