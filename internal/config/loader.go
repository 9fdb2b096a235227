// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	// 1. Set defaults
	cfg := DefaultConfig()

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	// 3. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)

	// SAFETY: Ensure DataDir is absolute to prevent path traversal/platform errors
	if cfg.DataDir != "" {
		if abs, err := filepath.Abs(cfg.DataDir); err == nil {
			cfg.DataDir = abs
		}
	}

	// 4. Resolve the preferences backend from the final data dir
	if cfg.Prefs.Backend == "" {
		if cfg.DataDir != "" {
			cfg.Prefs.Backend = "badger"
		} else {
			cfg.Prefs.Backend = "memory"
		}
	}

	// 5. Version from binary
	cfg.Version = l.version

	// 6. Validate final configuration
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

// mergeEnvConfig merges environment variables into the configuration.
// ENV variables have the highest precedence.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Listen = ParseString("UPRIGHTD_LISTEN", cfg.Listen)
	cfg.DataDir = ParseString("UPRIGHTD_DATA_DIR", cfg.DataDir)

	cfg.Log.Level = ParseString("UPRIGHTD_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = ParseString("UPRIGHTD_LOG_FORMAT", cfg.Log.Format)

	cfg.Analyzer.Python = ParseString("UPRIGHTD_ANALYZER_PYTHON", cfg.Analyzer.Python)
	cfg.Analyzer.Script = ParseString("UPRIGHTD_ANALYZER_SCRIPT", cfg.Analyzer.Script)
	cfg.Analyzer.Interval = ParseFloat("UPRIGHTD_ANALYZER_INTERVAL", cfg.Analyzer.Interval)
	cfg.Analyzer.Camera = ParseInt("UPRIGHTD_ANALYZER_CAMERA", cfg.Analyzer.Camera)
	cfg.Analyzer.Sensitivity = ParseFloat("UPRIGHTD_ANALYZER_SENSITIVITY", cfg.Analyzer.Sensitivity)
	cfg.Analyzer.Verbose = ParseBool("UPRIGHTD_ANALYZER_VERBOSE", cfg.Analyzer.Verbose)
	cfg.Analyzer.StopGrace = ParseDuration("UPRIGHTD_ANALYZER_STOP_GRACE", cfg.Analyzer.StopGrace)
	cfg.Analyzer.AutoStart = ParseBool("UPRIGHTD_ANALYZER_AUTO_START", cfg.Analyzer.AutoStart)

	cfg.Alerting.LeanStreak = ParseInt("UPRIGHTD_ALERT_LEAN_STREAK", cfg.Alerting.LeanStreak)
	cfg.Alerting.Dwell = ParseInt("UPRIGHTD_ALERT_DWELL", cfg.Alerting.Dwell)
	cfg.Alerting.ErrorStreak = ParseInt("UPRIGHTD_ALERT_ERROR_STREAK", cfg.Alerting.ErrorStreak)
	cfg.Alerting.NotifyInterval = ParseDuration("UPRIGHTD_NOTIFY_INTERVAL", cfg.Alerting.NotifyInterval)
	cfg.Alerting.NotifyBurst = ParseInt("UPRIGHTD_NOTIFY_BURST", cfg.Alerting.NotifyBurst)

	cfg.Prefs.Backend = ParseString("UPRIGHTD_PREFS_BACKEND", cfg.Prefs.Backend)

	cfg.Notify.AppWindow = ParseString("UPRIGHTD_NOTIFY_APP_WINDOW", cfg.Notify.AppWindow)
	cfg.Notify.SoundFile = ParseString("UPRIGHTD_NOTIFY_SOUND_FILE", cfg.Notify.SoundFile)

	cfg.Telemetry.Enabled = ParseBool("UPRIGHTD_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = ParseString("UPRIGHTD_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Protocol = ParseString("UPRIGHTD_OTEL_PROTOCOL", cfg.Telemetry.Protocol)
	cfg.Telemetry.Sample = ParseFloat("UPRIGHTD_OTEL_SAMPLE", cfg.Telemetry.Sample)

	cfg.API.RateLimit = ParseInt("UPRIGHTD_API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.Timeout = ParseDuration("UPRIGHTD_API_TIMEOUT", cfg.API.Timeout)
}

// Save writes cfg to path as YAML, atomically replacing any existing file.
// A crash mid-write never leaves a truncated config behind.
func Save(path string, cfg AppConfig) error {
	data, err := yaml.Marshal(ToFileConfig(cfg))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer pf.Cleanup() //nolint:errcheck

	if _, err := pf.Write(data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}
