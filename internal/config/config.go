// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads, validates, watches, and persists the daemon
// configuration. Precedence: environment > config file > defaults.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"time"
)

// AppConfig is the resolved runtime configuration. The YAML file shape
// lives in FileConfig; this struct always holds final, validated values.
type AppConfig struct {
	Listen  string
	DataDir string
	Version string

	Log       LogConfig
	Analyzer  AnalyzerConfig
	Alerting  AlertingConfig
	Prefs     PrefsConfig
	Notify    NotifyConfig
	Telemetry TelemetryConfig
	API       APIConfig
}

type LogConfig struct {
	Level  string
	Format string // json or console
}

// AnalyzerConfig describes how monitoring sessions launch the analysis
// process. A change here never touches a live process; the next session
// picks it up.
type AnalyzerConfig struct {
	Python      string
	Script      string
	Interval    float64
	Camera      int
	Sensitivity float64
	Verbose     bool
	StopGrace   time.Duration
	AutoStart   bool
}

type AlertingConfig struct {
	LeanStreak     int
	Dwell          int
	ErrorStreak    int
	NotifyInterval time.Duration
	NotifyBurst    int
}

type PrefsConfig struct {
	Backend string // memory or badger; empty derives from data_dir
}

type NotifyConfig struct {
	AppWindow string
	SoundFile string
}

type TelemetryConfig struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc or http
	Sample   float64
}

type APIConfig struct {
	RateLimit int // requests per minute per client
	Timeout   time.Duration
}

// DefaultConfig returns the stock configuration. The analyzer defaults
// mirror the analysis script's own argument defaults.
func DefaultConfig() AppConfig {
	return AppConfig{
		Listen: "127.0.0.1:8787",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Analyzer: AnalyzerConfig{
			Python:      "python3",
			Interval:    10.0,
			Camera:      0,
			Sensitivity: 0.4,
			StopGrace:   5 * time.Second,
		},
		Alerting: AlertingConfig{
			LeanStreak:     10,
			Dwell:          1800,
			ErrorStreak:    5,
			NotifyInterval: 30 * time.Second,
			NotifyBurst:    3,
		},
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4317",
			Protocol: "grpc",
			Sample:   0.1,
		},
		API: APIConfig{
			RateLimit: 120,
			Timeout:   15 * time.Second,
		},
	}
}

// HistoryPath derives the sqlite location; empty disables history.
func (c AppConfig) HistoryPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "history.db")
}

// PrefsDir derives the badger directory.
func (c AppConfig) PrefsDir() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "prefs")
}

// ServerConfig holds HTTP server tuning that stays out of the config file.
// The write timeout is deliberately absent: the event stream holds its
// response open for the lifetime of the client.
type ServerConfig struct {
	ListenAddr        string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
}

// ParseServerConfig builds the server tuning for the given listen address,
// with environment overrides.
func ParseServerConfig(listen string) ServerConfig {
	return ServerConfig{
		ListenAddr:        listen,
		ReadTimeout:       ParseDuration("UPRIGHTD_READ_TIMEOUT", 10*time.Second),
		ReadHeaderTimeout: ParseDuration("UPRIGHTD_READ_HEADER_TIMEOUT", 5*time.Second),
		IdleTimeout:       ParseDuration("UPRIGHTD_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout:   ParseDuration("UPRIGHTD_SHUTDOWN_TIMEOUT", 15*time.Second),
		MaxHeaderBytes:    ParseInt("UPRIGHTD_MAX_HEADER_BYTES", 1<<20),
	}
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate rejects configurations the daemon cannot run with. The analyzer
// checks mirror the validation the analysis script itself performs, so bad
// values fail here instead of as an opaque child exit.
func Validate(cfg AppConfig) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	host, _, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.Listen, err)
	}
	if !isLoopbackHost(host) {
		return fmt.Errorf("listen address %q is not loopback; the control API serves the local UI only", cfg.Listen)
	}

	if !logLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		return fmt.Errorf("invalid log format %q (json or console)", cfg.Log.Format)
	}

	a := cfg.Analyzer
	if a.Interval <= 0 {
		return fmt.Errorf("analyzer interval must be positive, got %v", a.Interval)
	}
	if a.Camera < 0 {
		return fmt.Errorf("analyzer camera index must be non-negative, got %d", a.Camera)
	}
	if a.Sensitivity < 0 || a.Sensitivity > 1 {
		return fmt.Errorf("analyzer sensitivity must be between 0.0 and 1.0, got %v", a.Sensitivity)
	}
	if a.StopGrace <= 0 {
		return fmt.Errorf("analyzer stop grace must be positive, got %v", a.StopGrace)
	}
	if a.AutoStart && a.Script == "" {
		return fmt.Errorf("analyzer auto_start requires a script path")
	}

	al := cfg.Alerting
	if al.LeanStreak <= 0 || al.Dwell <= 0 || al.ErrorStreak <= 0 {
		return fmt.Errorf("alerting thresholds must be positive")
	}
	if al.NotifyInterval <= 0 {
		return fmt.Errorf("alerting notify_interval must be positive, got %v", al.NotifyInterval)
	}
	if al.NotifyBurst < 1 {
		return fmt.Errorf("alerting notify_burst must be at least 1, got %d", al.NotifyBurst)
	}

	switch cfg.Prefs.Backend {
	case "", "memory":
	case "badger":
		if cfg.DataDir == "" {
			return fmt.Errorf("preferences backend badger requires data_dir")
		}
	default:
		return fmt.Errorf("unknown preferences backend %q", cfg.Prefs.Backend)
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
		}
		if cfg.Telemetry.Protocol != "grpc" && cfg.Telemetry.Protocol != "http" {
			return fmt.Errorf("invalid telemetry protocol %q (grpc or http)", cfg.Telemetry.Protocol)
		}
	}
	if cfg.Telemetry.Sample < 0 || cfg.Telemetry.Sample > 1 {
		return fmt.Errorf("telemetry sample must be between 0.0 and 1.0, got %v", cfg.Telemetry.Sample)
	}

	if cfg.API.RateLimit < 1 {
		return fmt.Errorf("api rate_limit must be at least 1, got %d", cfg.API.RateLimit)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %v", cfg.API.Timeout)
	}

	return nil
}

// isLoopbackHost reports whether host names the local machine. An empty
// host would bind every interface, so it does not count.
func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
