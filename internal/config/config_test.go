// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Test helper: write a config file and return its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Listen != "127.0.0.1:8787" {
		t.Errorf("expected loopback listen default, got %q", cfg.Listen)
	}
	if cfg.Analyzer.Interval != 10.0 {
		t.Errorf("expected interval 10.0, got %v", cfg.Analyzer.Interval)
	}
	if cfg.Analyzer.Sensitivity != 0.4 {
		t.Errorf("expected sensitivity 0.4, got %v", cfg.Analyzer.Sensitivity)
	}
	if cfg.Analyzer.StopGrace != 5*time.Second {
		t.Errorf("expected stop grace 5s, got %v", cfg.Analyzer.StopGrace)
	}
	if cfg.Alerting.LeanStreak != 10 || cfg.Alerting.Dwell != 1800 || cfg.Alerting.ErrorStreak != 5 {
		t.Errorf("unexpected alerting thresholds: %+v", cfg.Alerting)
	}
}

func TestValidate(t *testing.T) {
	valid := func() AppConfig {
		cfg := DefaultConfig()
		cfg.Prefs.Backend = "memory"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{
			name:   "default config is valid",
			mutate: func(cfg *AppConfig) {},
		},
		{
			name:    "empty listen",
			mutate:  func(cfg *AppConfig) { cfg.Listen = "" },
			wantErr: "listen address is required",
		},
		{
			name:    "listen without port",
			mutate:  func(cfg *AppConfig) { cfg.Listen = "127.0.0.1" },
			wantErr: "invalid listen address",
		},
		{
			name:    "non-loopback listen",
			mutate:  func(cfg *AppConfig) { cfg.Listen = "0.0.0.0:8787" },
			wantErr: "not loopback",
		},
		{
			name:    "all-interfaces listen",
			mutate:  func(cfg *AppConfig) { cfg.Listen = ":8787" },
			wantErr: "not loopback",
		},
		{
			name:   "localhost listen",
			mutate: func(cfg *AppConfig) { cfg.Listen = "localhost:8787" },
		},
		{
			name:   "ipv6 loopback listen",
			mutate: func(cfg *AppConfig) { cfg.Listen = "[::1]:8787" },
		},
		{
			name:    "unknown log level",
			mutate:  func(cfg *AppConfig) { cfg.Log.Level = "loud" },
			wantErr: "invalid log level",
		},
		{
			name:    "unknown log format",
			mutate:  func(cfg *AppConfig) { cfg.Log.Format = "xml" },
			wantErr: "invalid log format",
		},
		{
			name:    "zero interval",
			mutate:  func(cfg *AppConfig) { cfg.Analyzer.Interval = 0 },
			wantErr: "interval must be positive",
		},
		{
			name:    "negative camera",
			mutate:  func(cfg *AppConfig) { cfg.Analyzer.Camera = -1 },
			wantErr: "camera index must be non-negative",
		},
		{
			name:    "sensitivity above one",
			mutate:  func(cfg *AppConfig) { cfg.Analyzer.Sensitivity = 1.5 },
			wantErr: "sensitivity must be between 0.0 and 1.0",
		},
		{
			name:    "zero stop grace",
			mutate:  func(cfg *AppConfig) { cfg.Analyzer.StopGrace = 0 },
			wantErr: "stop grace must be positive",
		},
		{
			name:    "auto start without script",
			mutate:  func(cfg *AppConfig) { cfg.Analyzer.AutoStart = true },
			wantErr: "auto_start requires a script",
		},
		{
			name:    "zero dwell threshold",
			mutate:  func(cfg *AppConfig) { cfg.Alerting.Dwell = 0 },
			wantErr: "thresholds must be positive",
		},
		{
			name:    "zero notify burst",
			mutate:  func(cfg *AppConfig) { cfg.Alerting.NotifyBurst = 0 },
			wantErr: "notify_burst must be at least 1",
		},
		{
			name:    "unknown prefs backend",
			mutate:  func(cfg *AppConfig) { cfg.Prefs.Backend = "redis" },
			wantErr: "unknown preferences backend",
		},
		{
			name:    "badger without data dir",
			mutate:  func(cfg *AppConfig) { cfg.Prefs.Backend = "badger" },
			wantErr: "badger requires data_dir",
		},
		{
			name: "telemetry enabled without endpoint",
			mutate: func(cfg *AppConfig) {
				cfg.Telemetry.Enabled = true
				cfg.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry endpoint is required",
		},
		{
			name: "bad telemetry protocol",
			mutate: func(cfg *AppConfig) {
				cfg.Telemetry.Enabled = true
				cfg.Telemetry.Protocol = "udp"
			},
			wantErr: "invalid telemetry protocol",
		},
		{
			name:    "sample out of range",
			mutate:  func(cfg *AppConfig) { cfg.Telemetry.Sample = 1.1 },
			wantErr: "sample must be between 0.0 and 1.0",
		},
		{
			name:    "zero api rate limit",
			mutate:  func(cfg *AppConfig) { cfg.API.RateLimit = 0 },
			wantErr: "rate_limit must be at least 1",
		},
		{
			name:    "zero api timeout",
			mutate:  func(cfg *AppConfig) { cfg.API.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoaderDefaultsOnly(t *testing.T) {
	loader := NewLoader("", "test-version")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Version != "test-version" {
		t.Errorf("expected version from binary, got %q", cfg.Version)
	}
	if cfg.Prefs.Backend != "memory" {
		t.Errorf("expected memory backend without data dir, got %q", cfg.Prefs.Backend)
	}
	if cfg.Analyzer.Sensitivity != 0.4 {
		t.Errorf("expected default sensitivity, got %v", cfg.Analyzer.Sensitivity)
	}
}

func TestLoaderFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:9999"
analyzer:
  script: /opt/posture/cli.py
  sensitivity: 0.7
  stop_grace: 2s
alerting:
  lean_streak: 3
`)

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Listen != "127.0.0.1:9999" {
		t.Errorf("expected listen from file, got %q", cfg.Listen)
	}
	if cfg.Analyzer.Script != "/opt/posture/cli.py" {
		t.Errorf("expected script from file, got %q", cfg.Analyzer.Script)
	}
	if cfg.Analyzer.Sensitivity != 0.7 {
		t.Errorf("expected sensitivity from file, got %v", cfg.Analyzer.Sensitivity)
	}
	if cfg.Analyzer.StopGrace != 2*time.Second {
		t.Errorf("expected stop grace from file, got %v", cfg.Analyzer.StopGrace)
	}
	if cfg.Alerting.LeanStreak != 3 {
		t.Errorf("expected lean streak from file, got %d", cfg.Alerting.LeanStreak)
	}

	// Untouched fields keep defaults
	if cfg.Analyzer.Interval != 10.0 {
		t.Errorf("expected default interval, got %v", cfg.Analyzer.Interval)
	}
	if cfg.Alerting.Dwell != 1800 {
		t.Errorf("expected default dwell, got %d", cfg.Alerting.Dwell)
	}
}

func TestLoaderEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
analyzer:
  sensitivity: 0.7
`)
	t.Setenv("UPRIGHTD_ANALYZER_SENSITIVITY", "0.9")
	t.Setenv("UPRIGHTD_ALERT_DWELL", "600")

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Analyzer.Sensitivity != 0.9 {
		t.Errorf("expected env to override file, got %v", cfg.Analyzer.Sensitivity)
	}
	if cfg.Alerting.Dwell != 600 {
		t.Errorf("expected env to override default, got %d", cfg.Alerting.Dwell)
	}
}

func TestLoaderExplicitZeroSensitivity(t *testing.T) {
	path := writeConfig(t, `
analyzer:
  sensitivity: 0.0
`)

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// 0.0 is a valid sensitivity, distinct from "not set"
	if cfg.Analyzer.Sensitivity != 0 {
		t.Errorf("expected explicit zero sensitivity, got %v", cfg.Analyzer.Sensitivity)
	}
}

func TestLoaderDerivesPrefsBackend(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("UPRIGHTD_DATA_DIR", dataDir)

	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Prefs.Backend != "badger" {
		t.Errorf("expected badger backend with data dir, got %q", cfg.Prefs.Backend)
	}
	if cfg.HistoryPath() != filepath.Join(dataDir, "history.db") {
		t.Errorf("unexpected history path %q", cfg.HistoryPath())
	}
	if cfg.PrefsDir() != filepath.Join(dataDir, "prefs") {
		t.Errorf("unexpected prefs dir %q", cfg.PrefsDir())
	}
}

func TestLoaderStrictRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:9999"
sensitivty: 0.5
`)

	loader := NewLoader(path, "test")
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected strict parse error for unknown field, got nil")
	}
}

func TestLoaderRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "listen: \"127.0.0.1:9999\"\n---\nlisten: \"127.0.0.1:8888\"\n")

	loader := NewLoader(path, "test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for multiple documents, got nil")
	}
	if !strings.Contains(err.Error(), "multiple documents") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoaderRejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader(path, "test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for unsupported format, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported config format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoaderRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
analyzer:
  stop_grace: banana
`)

	loader := NewLoader(path, "test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "stop_grace") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoaderEmptyFile(t *testing.T) {
	path := writeConfig(t, "")

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed on empty file: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8787" {
		t.Errorf("expected defaults from empty file, got listen %q", cfg.Listen)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:9999"
	cfg.Analyzer.Script = "/opt/posture/cli.py"
	cfg.Analyzer.StopGrace = 7 * time.Second
	cfg.Alerting.NotifyInterval = 45 * time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loader := NewLoader(path, "test")
	got, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}

	// Load stamps the binary version and derives the prefs backend; the
	// rest must survive the file round trip untouched.
	want := cfg
	want.Version = "test"
	want.Prefs.Backend = "memory"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: \"127.0.0.1:1111\"\n"), 0o600); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:2222"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loader := NewLoader(path, "test")
	got, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Listen != "127.0.0.1:2222" {
		t.Errorf("expected replaced config, got listen %q", got.Listen)
	}
}
