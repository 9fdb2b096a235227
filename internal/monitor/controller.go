// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package monitor owns the monitoring session lifecycle. The Controller
// launches the analyzer through the supervisor, routes its stream into the
// alerting machine, and records sessions and alerts. At most one session is
// live at a time; all lifecycle operations are serialized.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/uprightd/internal/alerting"
	"github.com/ManuGH/uprightd/internal/analyzer"
	"github.com/ManuGH/uprightd/internal/bus"
	"github.com/ManuGH/uprightd/internal/history"
	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/metrics"
	"github.com/ManuGH/uprightd/internal/notify"
	"github.com/ManuGH/uprightd/internal/prefs"
	"github.com/ManuGH/uprightd/internal/protocol"
	"github.com/ManuGH/uprightd/internal/stream"
	"github.com/ManuGH/uprightd/internal/telemetry"
)

// ErrNotConfigured is returned by StartMonitoring while no analyzer script
// is configured.
var ErrNotConfigured = errors.New("no analyzer script configured")

// endTimeout bounds the history write on session end; stopping must never
// hang on a slow database.
const endTimeout = 5 * time.Second

// topicBuffer absorbs bursts between the stream router and the feed loop.
const topicBuffer = 16

// Options wires a Controller. Supervisor, Prefs and Launch are required;
// nil optional collaborators degrade to no-ops.
type Options struct {
	Supervisor *analyzer.Supervisor
	Prefs      prefs.Store
	History    history.Store
	Notifier   notify.Notifier
	Raiser     notify.WindowRaiser
	Sound      notify.SoundPlayer

	// Launch returns the current analyzer launch settings. Sensitivity is
	// overridden with the stored preference on every start.
	Launch func() analyzer.Config
	// Thresholds returns the current alerting thresholds, sampled on every
	// start.
	Thresholds func() alerting.Thresholds
}

// Status is the controller's observable state, shaped for the status API.
type Status struct {
	Active      bool              `json:"active"`
	SessionID   string            `json:"session_id,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	PID         int               `json:"pid,omitempty"`
	Sensitivity float64           `json:"sensitivity"`
	Interval    float64           `json:"interval_s"`
	Camera      int               `json:"camera"`
	Posture     alerting.Snapshot `json:"posture"`
}

// Controller runs at most one monitoring session.
type Controller struct {
	supervisor *analyzer.Supervisor
	prefs      prefs.Store
	history    history.Store
	notifier   notify.Notifier
	raiser     notify.WindowRaiser
	sound      notify.SoundPlayer
	launch     func() analyzer.Config
	thresholds func() alerting.Thresholds
	events     *bus.Topic[Event]
	logger     zerolog.Logger

	// opMu serializes Start, Stop, UpdateSensitivity and Close. It is never
	// held while the feed loop needs to make progress on c.mu.
	opMu sync.Mutex

	mu      sync.RWMutex
	session *session
	lastErr string
}

// session is one monitoring run from analyzer launch to finalize.
type session struct {
	id      string
	cfg     analyzer.Config
	started time.Time

	proc    *analyzer.Process
	topics  *stream.Topics
	machine *alerting.Machine
	sink    *machineSink

	postures *bus.Subscription[protocol.PostureResult]
	errs     *bus.Subscription[protocol.DetectionError]
	statuses *bus.Subscription[protocol.StatusUpdate]

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed when the feed loop has exited
	finish sync.Once
}

// NewController wires a controller from opts.
func NewController(opts Options) *Controller {
	c := &Controller{
		supervisor: opts.Supervisor,
		prefs:      opts.Prefs,
		history:    opts.History,
		notifier:   opts.Notifier,
		raiser:     opts.Raiser,
		sound:      opts.Sound,
		launch:     opts.Launch,
		thresholds: opts.Thresholds,
		events:     bus.NewTopic[Event]("events"),
		logger:     log.WithComponent("monitor"),
	}
	if c.history == nil {
		c.history = history.Nop{}
	}
	if c.notifier == nil {
		c.notifier = notify.NopNotifier{}
	}
	if c.raiser == nil {
		c.raiser = notify.NopRaiser{}
	}
	if c.sound == nil {
		c.sound = notify.NopSound{}
	}
	if c.thresholds == nil {
		c.thresholds = alerting.DefaultThresholds
	}
	return c
}

// Events returns the topic carrying state, alert and session events.
func (c *Controller) Events() *bus.Topic[Event] { return c.events }

// StartMonitoring launches a session. Calling it while a session is live is
// a no-op returning the current status.
func (c *Controller) StartMonitoring(ctx context.Context) (Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.active() != nil {
		return c.Status(), nil
	}
	return c.startSession(ctx)
}

// StopMonitoring ends the current session. Idempotent.
func (c *Controller) StopMonitoring() Status {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopSession(history.StopUser)
	return c.Status()
}

// UpdateSensitivity persists the new detection sensitivity. A live session
// is restarted exactly once so the analyzer picks up the value.
func (c *Controller) UpdateSensitivity(ctx context.Context, v float64) (Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.prefs.SetSensitivity(v); err != nil {
		return c.Status(), err
	}
	metrics.IncSensitivityUpdate()
	c.logger.Info().
		Float64("sensitivity", v).
		Str(log.FieldEvent, "sensitivity.updated").
		Msg("detection sensitivity updated")

	if c.active() == nil {
		return c.Status(), nil
	}
	c.stopSession(history.StopSensitivity)
	return c.startSession(ctx)
}

// Close stops any live session with the shutdown reason and closes the
// event stream.
func (c *Controller) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopSession(history.StopShutdown)
	c.events.Close()
}

// Status reports the controller's current state. When idle, sensitivity
// reflects the stored preference and the posture snapshot carries the last
// session's terminal error, if any.
func (c *Controller) Status() Status {
	c.mu.RLock()
	s := c.session
	lastErr := c.lastErr
	c.mu.RUnlock()

	if s != nil {
		select {
		case <-s.done:
			s = nil
		default:
		}
	}

	if s != nil {
		started := s.started
		return Status{
			Active:      true,
			SessionID:   s.id,
			StartedAt:   &started,
			PID:         s.proc.PID(),
			Sensitivity: s.cfg.Sensitivity,
			Interval:    s.cfg.Interval,
			Camera:      s.cfg.Camera,
			Posture:     s.machine.Snapshot(),
		}
	}

	cfg := c.launch()
	st := Status{
		Sensitivity: cfg.Sensitivity,
		Interval:    cfg.Interval,
		Camera:      cfg.Camera,
		Posture:     alerting.Snapshot{State: alerting.StateUndetermined, LastError: lastErr},
	}
	if v, err := c.prefs.Sensitivity(); err == nil {
		st.Sensitivity = v
	}
	return st
}

// HealthState feeds the monitor readiness checker: whether a session is
// live, and the last terminal error when idle.
func (c *Controller) HealthState() (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s := c.session; s != nil {
		select {
		case <-s.done:
		default:
			return true, ""
		}
	}
	return false, c.lastErr
}

// active returns the live session, or nil once its feed loop has exited.
func (c *Controller) active() *session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.session
	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	default:
		return s
	}
}

func (c *Controller) soundGate() bool {
	on, err := c.prefs.SoundEnabled()
	if err != nil {
		return prefs.DefaultSoundEnabled
	}
	return on
}

// startSession launches the analyzer and starts the routing and feed
// goroutines. Caller holds opMu.
func (c *Controller) startSession(ctx context.Context) (Status, error) {
	ctx, span := telemetry.Tracer("uprightd.monitor").Start(ctx, "uprightd.monitor.session.start")
	defer span.End()

	cfg := c.launch()
	if cfg.Script == "" {
		metrics.IncSessionStart("unconfigured")
		span.SetStatus(codes.Error, ErrNotConfigured.Error())
		return c.Status(), ErrNotConfigured
	}
	if v, err := c.prefs.Sensitivity(); err != nil {
		c.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "session.prefs_unavailable").
			Msg("stored sensitivity unavailable, using configured value")
	} else {
		cfg.Sensitivity = v
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:      uuid.NewString(),
		cfg:     cfg,
		started: time.Now(),
		ctx:     sctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.sink = newMachineSink(c, s)
	s.machine = alerting.NewMachine(s.sink, c.soundGate, c.thresholds())

	proc, err := c.supervisor.Start(ctx, cfg)
	if err != nil {
		cancel()
		metrics.IncSessionStart("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return c.Status(), fmt.Errorf("start analyzer: %w", err)
	}
	s.proc = proc
	span.SetAttributes(telemetry.SessionAttributes(s.id, cfg.Sensitivity, cfg.Interval, cfg.Camera)...)
	span.SetAttributes(telemetry.AnalyzerAttributes(proc.PID(), cfg.Script)...)

	// Subscriptions are attached before the router starts so the first
	// lines cannot be dropped.
	s.topics = stream.NewTopics()
	s.postures = s.topics.Postures.SubscribeBuffer(topicBuffer)
	s.errs = s.topics.Errors.SubscribeBuffer(topicBuffer)
	s.statuses = s.topics.Statuses.SubscribeBuffer(topicBuffer)

	router := stream.NewRouter(s.topics)
	go func() {
		defer s.topics.Close()
		router.Run(proc)
	}()
	go c.feed(s)

	if err := c.history.StartSession(sctx, history.Session{
		ID:          s.id,
		StartedAt:   s.started,
		Sensitivity: cfg.Sensitivity,
		Interval:    cfg.Interval,
		Camera:      cfg.Camera,
	}); err != nil {
		c.logger.Warn().
			Err(err).
			Str(log.FieldSessionID, s.id).
			Str(log.FieldEvent, "session.history_error").
			Msg("failed to record session start")
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	metrics.IncSessionStart("ok")
	metrics.SetSessionActive(true)
	c.events.Publish(Event{Type: EventSession, At: s.started, SessionID: s.id, Cause: "started"})
	c.logger.Info().
		Str(log.FieldSessionID, s.id).
		Int(log.FieldPID, proc.PID()).
		Float64("sensitivity", cfg.Sensitivity).
		Float64("interval_s", cfg.Interval).
		Int("camera", cfg.Camera).
		Str(log.FieldEvent, "session.start").
		Msg("monitoring session started")
	return c.Status(), nil
}

// stopSession terminates the live session, if any, and finalizes it with
// reason. Caller holds opMu.
func (c *Controller) stopSession(reason string) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return
	}

	_, span := telemetry.Tracer("uprightd.monitor").Start(context.Background(), "uprightd.monitor.session.stop")
	span.SetAttributes(
		attribute.String(telemetry.SessionIDKey, s.id),
		attribute.String(telemetry.SessionStopReasonKey, reason),
	)
	defer span.End()

	if err := c.supervisor.Stop(); err != nil {
		// The exit status of a terminated child lands here; not a failure.
		c.logger.Debug().
			Err(err).
			Str(log.FieldSessionID, s.id).
			Str(log.FieldEvent, "session.stop_exit").
			Msg("analyzer exit status on stop")
	}
	<-s.done

	s.machine.Reset()
	c.finalize(s, reason)
	s.sink.wait()
	s.cancel()
}

// feed drives the alerting machine from the session's stream topics. It is
// the only goroutine calling machine handlers, and it never takes opMu.
func (c *Controller) feed(s *session) {
	defer close(s.done)

	postures := s.postures.C()
	errs := s.errs.C()
	statuses := s.statuses.C()

	for postures != nil || errs != nil || statuses != nil {
		select {
		case r, ok := <-postures:
			if !ok {
				postures = nil
				continue
			}
			s.machine.HandleResult(r)
		case e, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.machine.HandleError(e)
		case u, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			s.machine.HandleStatus(u)
		}
	}

	// The topics only close after the process exited and the router
	// drained both streams.
	<-s.proc.Done()
	if s.proc.StopRequested() {
		return // orderly stop; the stopping operation finalizes
	}

	c.supervisor.Release(s.proc)
	metrics.IncProcUnsolicitedExit()
	metrics.IncStreamFailure("unsolicited_exit")
	cause := s.proc.ExitError()
	if cause == nil {
		cause = errors.New("analyzer exited unexpectedly")
	}
	c.logger.Error().
		Err(cause).
		Str(log.FieldSessionID, s.id).
		Int(log.FieldPID, s.proc.PID()).
		Str(log.FieldEvent, "session.unsolicited_exit").
		Msg("analyzer exited without a stop request")
	s.machine.HandleStreamFailure(cause)
	c.finalize(s, history.StopStream)
	s.sink.wait()
	s.cancel()
}

// finalize records the session end exactly once, whichever terminator gets
// there first.
func (c *Controller) finalize(s *session, reason string) {
	s.finish.Do(func() {
		endedAt := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), endTimeout)
		defer cancel()
		if err := c.history.EndSession(ctx, s.id, endedAt, reason); err != nil {
			c.logger.Warn().
				Err(err).
				Str(log.FieldSessionID, s.id).
				Str(log.FieldEvent, "session.history_error").
				Msg("failed to record session end")
		}

		snap := s.machine.Snapshot()
		c.mu.Lock()
		c.lastErr = snap.LastError
		if c.session == s {
			c.session = nil
		}
		c.mu.Unlock()

		metrics.IncSessionStop(reason)
		metrics.SetSessionActive(false)
		metrics.ObserveSessionDuration(endedAt.Sub(s.started))
		c.events.Publish(Event{Type: EventSession, At: endedAt, SessionID: s.id, Cause: reason})
		c.logger.Info().
			Str(log.FieldSessionID, s.id).
			Str("reason", reason).
			Dur("duration", endedAt.Sub(s.started)).
			Str(log.FieldEvent, "session.stop").
			Msg("monitoring session ended")
	})
}
