// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"time"
)

// FileConfig represents the YAML configuration structure. Durations are
// strings in Go duration syntax (e.g. "5s"). Optional fields use pointers
// to distinguish between "not set" and "explicitly set to zero/false".
type FileConfig struct {
	Listen  string `yaml:"listen,omitempty"`
	DataDir string `yaml:"data_dir,omitempty"`

	Log       FileLogConfig       `yaml:"log,omitempty"`
	Analyzer  FileAnalyzerConfig  `yaml:"analyzer,omitempty"`
	Alerting  FileAlertingConfig  `yaml:"alerting,omitempty"`
	Prefs     FilePrefsConfig     `yaml:"preferences,omitempty"`
	Notify    FileNotifyConfig    `yaml:"notify,omitempty"`
	Telemetry FileTelemetryConfig `yaml:"telemetry,omitempty"`
	API       FileAPIConfig       `yaml:"api,omitempty"`
}

type FileLogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "json" or "console"
}

type FileAnalyzerConfig struct {
	Python      string   `yaml:"python,omitempty"`
	Script      string   `yaml:"script,omitempty"`
	Interval    *float64 `yaml:"interval,omitempty"`
	Camera      *int     `yaml:"camera,omitempty"`
	Sensitivity *float64 `yaml:"sensitivity,omitempty"`
	Verbose     *bool    `yaml:"verbose,omitempty"`
	StopGrace   string   `yaml:"stop_grace,omitempty"` // e.g. "5s"
	AutoStart   *bool    `yaml:"auto_start,omitempty"`
}

type FileAlertingConfig struct {
	LeanStreak     *int   `yaml:"lean_streak,omitempty"`
	Dwell          *int   `yaml:"dwell,omitempty"`
	ErrorStreak    *int   `yaml:"error_streak,omitempty"`
	NotifyInterval string `yaml:"notify_interval,omitempty"` // e.g. "30s"
	NotifyBurst    *int   `yaml:"notify_burst,omitempty"`
}

type FilePrefsConfig struct {
	Backend string `yaml:"backend,omitempty"` // "memory" or "badger"
}

type FileNotifyConfig struct {
	AppWindow string `yaml:"app_window,omitempty"`
	SoundFile string `yaml:"sound_file,omitempty"`
}

type FileTelemetryConfig struct {
	Enabled  *bool    `yaml:"enabled,omitempty"`
	Endpoint string   `yaml:"endpoint,omitempty"`
	Protocol string   `yaml:"protocol,omitempty"` // "grpc" or "http"
	Sample   *float64 `yaml:"sample,omitempty"`
}

type FileAPIConfig struct {
	RateLimit *int   `yaml:"rate_limit,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"` // e.g. "15s"
}

// mergeFileConfig applies file values over cfg. Absent fields keep their
// current (default) values. Invalid duration strings are errors, not
// silent fallbacks, matching the strict parse policy.
func mergeFileConfig(cfg *AppConfig, src *FileConfig) error {
	if src.Listen != "" {
		cfg.Listen = src.Listen
	}
	if src.DataDir != "" {
		cfg.DataDir = src.DataDir
	}

	if src.Log.Level != "" {
		cfg.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		cfg.Log.Format = src.Log.Format
	}

	if src.Analyzer.Python != "" {
		cfg.Analyzer.Python = src.Analyzer.Python
	}
	if src.Analyzer.Script != "" {
		cfg.Analyzer.Script = src.Analyzer.Script
	}
	if src.Analyzer.Interval != nil {
		cfg.Analyzer.Interval = *src.Analyzer.Interval
	}
	if src.Analyzer.Camera != nil {
		cfg.Analyzer.Camera = *src.Analyzer.Camera
	}
	if src.Analyzer.Sensitivity != nil {
		cfg.Analyzer.Sensitivity = *src.Analyzer.Sensitivity
	}
	if src.Analyzer.Verbose != nil {
		cfg.Analyzer.Verbose = *src.Analyzer.Verbose
	}
	if src.Analyzer.StopGrace != "" {
		d, err := time.ParseDuration(src.Analyzer.StopGrace)
		if err != nil {
			return fmt.Errorf("analyzer stop_grace: %w", err)
		}
		cfg.Analyzer.StopGrace = d
	}
	if src.Analyzer.AutoStart != nil {
		cfg.Analyzer.AutoStart = *src.Analyzer.AutoStart
	}

	if src.Alerting.LeanStreak != nil {
		cfg.Alerting.LeanStreak = *src.Alerting.LeanStreak
	}
	if src.Alerting.Dwell != nil {
		cfg.Alerting.Dwell = *src.Alerting.Dwell
	}
	if src.Alerting.ErrorStreak != nil {
		cfg.Alerting.ErrorStreak = *src.Alerting.ErrorStreak
	}
	if src.Alerting.NotifyInterval != "" {
		d, err := time.ParseDuration(src.Alerting.NotifyInterval)
		if err != nil {
			return fmt.Errorf("alerting notify_interval: %w", err)
		}
		cfg.Alerting.NotifyInterval = d
	}
	if src.Alerting.NotifyBurst != nil {
		cfg.Alerting.NotifyBurst = *src.Alerting.NotifyBurst
	}

	if src.Prefs.Backend != "" {
		cfg.Prefs.Backend = src.Prefs.Backend
	}

	if src.Notify.AppWindow != "" {
		cfg.Notify.AppWindow = src.Notify.AppWindow
	}
	if src.Notify.SoundFile != "" {
		cfg.Notify.SoundFile = src.Notify.SoundFile
	}

	if src.Telemetry.Enabled != nil {
		cfg.Telemetry.Enabled = *src.Telemetry.Enabled
	}
	if src.Telemetry.Endpoint != "" {
		cfg.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Telemetry.Protocol != "" {
		cfg.Telemetry.Protocol = src.Telemetry.Protocol
	}
	if src.Telemetry.Sample != nil {
		cfg.Telemetry.Sample = *src.Telemetry.Sample
	}

	if src.API.RateLimit != nil {
		cfg.API.RateLimit = *src.API.RateLimit
	}
	if src.API.Timeout != "" {
		d, err := time.ParseDuration(src.API.Timeout)
		if err != nil {
			return fmt.Errorf("api timeout: %w", err)
		}
		cfg.API.Timeout = d
	}

	return nil
}

// ToFileConfig converts a runtime config back to its file representation
// so Save and `config dump` emit durations in readable "5s" form.
func ToFileConfig(cfg AppConfig) FileConfig {
	return FileConfig{
		Listen:  cfg.Listen,
		DataDir: cfg.DataDir,
		Log: FileLogConfig{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		},
		Analyzer: FileAnalyzerConfig{
			Python:      cfg.Analyzer.Python,
			Script:      cfg.Analyzer.Script,
			Interval:    &cfg.Analyzer.Interval,
			Camera:      &cfg.Analyzer.Camera,
			Sensitivity: &cfg.Analyzer.Sensitivity,
			Verbose:     &cfg.Analyzer.Verbose,
			StopGrace:   cfg.Analyzer.StopGrace.String(),
			AutoStart:   &cfg.Analyzer.AutoStart,
		},
		Alerting: FileAlertingConfig{
			LeanStreak:     &cfg.Alerting.LeanStreak,
			Dwell:          &cfg.Alerting.Dwell,
			ErrorStreak:    &cfg.Alerting.ErrorStreak,
			NotifyInterval: cfg.Alerting.NotifyInterval.String(),
			NotifyBurst:    &cfg.Alerting.NotifyBurst,
		},
		Prefs: FilePrefsConfig{
			Backend: cfg.Prefs.Backend,
		},
		Notify: FileNotifyConfig{
			AppWindow: cfg.Notify.AppWindow,
			SoundFile: cfg.Notify.SoundFile,
		},
		Telemetry: FileTelemetryConfig{
			Enabled:  &cfg.Telemetry.Enabled,
			Endpoint: cfg.Telemetry.Endpoint,
			Protocol: cfg.Telemetry.Protocol,
			Sample:   &cfg.Telemetry.Sample,
		},
		API: FileAPIConfig{
			RateLimit: &cfg.API.RateLimit,
			Timeout:   cfg.API.Timeout.String(),
		},
	}
}
