// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/uprightd/internal/alerting"
	"github.com/ManuGH/uprightd/internal/analyzer"
	"github.com/ManuGH/uprightd/internal/api"
	"github.com/ManuGH/uprightd/internal/config"
	"github.com/ManuGH/uprightd/internal/daemon"
	"github.com/ManuGH/uprightd/internal/health"
	"github.com/ManuGH/uprightd/internal/history"
	uplog "github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/monitor"
	"github.com/ManuGH/uprightd/internal/notify"
	"github.com/ManuGH/uprightd/internal/prefs"
	"github.com/ManuGH/uprightd/internal/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	// Handle command-line flags
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded. The
	// writer is fixed for the process lifetime, so the console format has
	// to come from the environment before the config file is read.
	logCfg := uplog.Config{
		Service: "uprightd",
		Version: version,
	}
	if os.Getenv("UPRIGHTD_LOG_FORMAT") == "console" {
		logCfg.Output = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	uplog.Configure(logCfg)

	logger := uplog.WithComponent("daemon")

	// Create a context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Determine config path:
	// - Explicit via --config
	// - Otherwise auto-load ${UPRIGHTD_DATA_DIR}/config.yaml if it exists
	explicitConfigPath := strings.TrimSpace(*configPath)
	effectiveConfigPath := explicitConfigPath
	if effectiveConfigPath == "" {
		if dataDir := strings.TrimSpace(config.ParseString("UPRIGHTD_DATA_DIR", "")); dataDir != "" {
			autoPath := filepath.Join(dataDir, "config.yaml")
			if _, err := os.Stat(autoPath); err == nil {
				effectiveConfigPath = autoPath
			}
		}
	}

	// Load configuration with precedence: ENV > File > Defaults
	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// The boot logger starts at info; the loaded config decides the final
	// level.
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// Log config source
	if explicitConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", explicitConfigPath).
			Msg("loaded configuration from file")
	} else if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file(auto)").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	// -------------------------------------------------------------------------
	// Pre-flight Checks (Fail Fast)
	// -------------------------------------------------------------------------
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}
	// -------------------------------------------------------------------------

	// Parse server configuration
	serverCfg := config.ParseServerConfig(cfg.Listen)

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", serverCfg.ListenAddr).
		Msg("starting uprightd")

	// Log key configuration
	if cfg.Analyzer.Script != "" {
		logger.Info().Msgf("→ Analyzer: %s (%s)", cfg.Analyzer.Script, cfg.Analyzer.Python)
	} else {
		logger.Info().Msg("→ Analyzer: not configured (set analyzer.script to enable monitoring)")
	}
	logger.Info().Msgf("→ Checks: every %.1fs, camera %d, sensitivity %.2f", cfg.Analyzer.Interval, cfg.Analyzer.Camera, cfg.Analyzer.Sensitivity)
	logger.Info().Msgf("→ Alerting: lean streak %d, dwell %d, error streak %d", cfg.Alerting.LeanStreak, cfg.Alerting.Dwell, cfg.Alerting.ErrorStreak)
	if cfg.DataDir != "" {
		logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	} else {
		logger.Warn().Msg("→ Data dir: none (history and preferences are in-memory only)")
	}
	if cfg.Notify.SoundFile != "" {
		logger.Info().Msgf("→ Alert sound: %s", cfg.Notify.SoundFile)
	} else {
		logger.Info().Msg("→ Alert sound: disabled")
	}
	if cfg.Telemetry.Enabled {
		logger.Info().Msgf("→ Tracing: %s (%s)", cfg.Telemetry.Endpoint, cfg.Telemetry.Protocol)
	}

	// Open the stores. With no data dir both fall back to their in-memory
	// flavors, so a bare `uprightd` still runs.
	historyStore, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "history.open_failed").
			Str("path", cfg.HistoryPath()).
			Msg("failed to open history store")
	}

	prefsStore, err := prefs.NewStore(cfg.Prefs.Backend, cfg.PrefsDir())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "prefs.open_failed").
			Str("backend", cfg.Prefs.Backend).
			Msg("failed to open preferences store")
	}

	// A non-default sensitivity in the config seeds the stored preference
	// at boot; API updates take over from there until the next restart.
	if cfg.Analyzer.Sensitivity != prefs.DefaultSensitivity {
		if err := prefsStore.SetSensitivity(cfg.Analyzer.Sensitivity); err != nil {
			logger.Warn().
				Err(err).
				Str("event", "prefs.seed_failed").
				Msg("could not seed sensitivity from config")
		}
	}

	// Hot reload support: watch config file and allow SIGHUP-triggered reload.
	configMgrPath := effectiveConfigPath
	if configMgrPath == "" && cfg.DataDir != "" {
		configMgrPath = filepath.Join(cfg.DataDir, "config.yaml")
	}
	cfgHolder := config.NewHolder(cfg, config.NewLoader(configMgrPath, version), configMgrPath)

	var tracerProvider *telemetry.Provider
	if tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "uprightd",
		ServiceVersion: version,
		Environment:    config.ParseString("UPRIGHTD_ENVIRONMENT", "production"),
		ExporterType:   cfg.Telemetry.Protocol,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.Sample,
	}); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("continuing without tracing")
	} else {
		tracerProvider = tp
	}

	// Monitoring pipeline: supervisor runs the analyzer process, the
	// controller owns sessions and feeds the desktop notifier.
	supervisor := analyzer.NewSupervisor(cfg.Analyzer.StopGrace)
	desktop := notify.Desktop(notify.DesktopOptions{
		AppWindow: cfg.Notify.AppWindow,
		SoundFile: cfg.Notify.SoundFile,
	})
	notifier := notify.NewRateLimited(desktop.Notifier, rate.Every(cfg.Alerting.NotifyInterval), cfg.Alerting.NotifyBurst)

	ctrl := monitor.NewController(monitor.Options{
		Supervisor: supervisor,
		Prefs:      prefsStore,
		History:    historyStore,
		Notifier:   notifier,
		Raiser:     desktop.Raiser,
		Sound:      desktop.Sound,
		Launch: func() analyzer.Config {
			c := cfgHolder.Get()
			return analyzer.Config{
				Script:      c.Analyzer.Script,
				Python:      c.Analyzer.Python,
				Interval:    c.Analyzer.Interval,
				Camera:      c.Analyzer.Camera,
				Sensitivity: c.Analyzer.Sensitivity,
				Verbose:     c.Analyzer.Verbose,
			}
		},
		Thresholds: func() alerting.Thresholds {
			c := cfgHolder.Get()
			return alerting.Thresholds{
				LeanStreak: c.Alerting.LeanStreak,
				Dwell:      c.Alerting.Dwell,
				ErrStreak:  c.Alerting.ErrorStreak,
			}
		},
	})

	hm := health.NewManager(version)
	if cfg.Analyzer.Script != "" {
		hm.RegisterChecker(health.NewFileChecker("analyzer_script", cfg.Analyzer.Script))
	}
	if cfg.HistoryPath() != "" {
		hm.RegisterChecker(health.NewStoreChecker("history", func(ctx context.Context) error {
			_, err := historyStore.RecentAlerts(ctx, 1)
			return err
		}))
	}
	hm.RegisterChecker(health.NewMonitorChecker(ctrl.HealthState))

	srv := api.NewServer(api.Options{
		Config:     cfgHolder.Get,
		Controller: ctrl,
		Prefs:      prefsStore,
		History:    historyStore,
		Health:     hm,
		Version:    version,
	})

	deps := daemon.Deps{
		Logger:     logger,
		Config:     cfg,
		APIHandler: srv.Handler(),
	}

	mgr, err := daemon.NewManager(serverCfg, deps)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.creation.failed").
			Msg("failed to create daemon manager")
	}

	// Hooks run LIFO: the monitor session stops first, the stores close
	// after it, telemetry flushes last.
	if tracerProvider != nil {
		mgr.RegisterShutdownHook("telemetry", tracerProvider.Shutdown)
	}
	mgr.RegisterShutdownHook("config_watcher", func(context.Context) error {
		cfgHolder.Stop()
		return nil
	})
	mgr.RegisterShutdownHook("preferences", func(context.Context) error {
		return prefsStore.Close()
	})
	mgr.RegisterShutdownHook("history", func(context.Context) error {
		return historyStore.Close()
	})
	mgr.RegisterShutdownHook("monitor", func(context.Context) error {
		ctrl.Close()
		return nil
	})

	// Start daemon app (blocks until shutdown)
	app := daemon.NewApp(logger, mgr, cfgHolder, ctrl, cfg.Analyzer.AutoStart)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}
