// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/uprightd/internal/config"
	"github.com/ManuGH/uprightd/internal/monitor"
)

// App owns the long-lived runtime lifecycle (config watcher, reload wiring,
// monitoring autostart) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	controller   *monitor.Controller
	autoStart    bool
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder, controller *monitor.Controller, autoStart bool) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		controller:   controller,
		autoStart:    autoStart,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if the watcher
	// cannot be started.
	if a.holder != nil {
		if err := a.holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
	}

	// SIGHUP trigger for manual reload.
	if a.holder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.holder.Reload(context.Background()); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	// Monitoring autostart is best-effort; the API can still start a
	// session later if this fails.
	if a.autoStart && a.controller != nil {
		g.Go(func() error {
			if _, err := a.controller.StartMonitoring(ctx); err != nil {
				if errors.Is(err, monitor.ErrNotConfigured) {
					a.logger.Warn().
						Str("event", "monitor.autostart_skipped").
						Msg("monitoring autostart skipped: no analyzer script configured")
				} else {
					a.logger.Error().
						Err(err).
						Str("event", "monitor.autostart_failed").
						Msg("monitoring autostart failed")
				}
			}
			return nil
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
