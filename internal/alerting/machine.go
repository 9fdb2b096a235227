// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package alerting turns the raw detection stream into stable displayed
// state and debounced, threshold-driven alert intents.
package alerting

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/metrics"
	"github.com/ManuGH/uprightd/internal/protocol"
)

// State is the displayed posture state. Undetermined is both the initial
// state and the recovery state after errors and stream failures.
type State string

const (
	StateUpright      State = "upright"
	StateLeaning      State = "leaning"
	StateUndetermined State = "undetermined"
)

// Transition causes.
const (
	CauseResult = "result"
	CauseErrors = "errors"
	CauseStream = "stream"
	CauseReset  = "reset"
)

// Notification titles for the machine's built-in alerts.
const (
	TitleStandUp     = "Time to stand up"
	TitleInterrupted = "Posture monitoring interrupted"
)

// Thresholds carries the counter limits for the machine's side effects.
// Zero values fall back to the defaults.
type Thresholds struct {
	LeanStreak int // consecutive leaning results tolerated before a posture alert
	Dwell      int // results per session before a stand-up reminder
	ErrStreak  int // consecutive errors before the displayed state degrades
}

// DefaultThresholds returns the stock limits: posture alert strictly after
// 10 consecutive leaning results (the 11th fires), stand-up reminder on the
// 1800th result, state degradation on the 5th consecutive error.
func DefaultThresholds() Thresholds {
	return Thresholds{LeanStreak: 10, Dwell: 1800, ErrStreak: 5}
}

// Transition describes one displayed-state change.
type Transition struct {
	From  State
	To    State
	At    time.Time
	Cause string
}

// Notification is a user-facing message intent.
type Notification struct {
	Title string
	Body  string
}

// Sink receives the machine's outputs: displayed-state transitions and the
// advisory side-effect requests. The machine never calls OS primitives
// itself. Calls arrive serialized from the event-handling path and must not
// block.
type Sink interface {
	StateChanged(t Transition)
	Notify(n Notification)
	RaiseWindow()
	PlaySound()
}

// NopSink discards all machine outputs.
type NopSink struct{}

func (NopSink) StateChanged(Transition) {}
func (NopSink) Notify(Notification)     {}
func (NopSink) RaiseWindow()            {}
func (NopSink) PlaySound()              {}

// SoundGate reports whether sound alerts are enabled. It is consulted at
// emission time so preference flips apply to the next alert immediately.
type SoundGate func() bool

// Machine is the debounced alerting state machine. The displayed state is
// assigned here and nowhere else. All methods serialize through an internal
// mutex.
type Machine struct {
	mu         sync.Mutex
	state      State
	thresholds Thresholds

	leanStreak int
	dwell      int
	errStreak  int

	lastError string

	sink   Sink
	sound  SoundGate
	logger zerolog.Logger
}

// NewMachine creates a machine in the Undetermined state.
func NewMachine(sink Sink, gate SoundGate, t Thresholds) *Machine {
	if sink == nil {
		sink = NopSink{}
	}
	if gate == nil {
		gate = func() bool { return false }
	}
	d := DefaultThresholds()
	if t.LeanStreak <= 0 {
		t.LeanStreak = d.LeanStreak
	}
	if t.Dwell <= 0 {
		t.Dwell = d.Dwell
	}
	if t.ErrStreak <= 0 {
		t.ErrStreak = d.ErrStreak
	}

	m := &Machine{
		state:      StateUndetermined,
		thresholds: t,
		sink:       sink,
		sound:      gate,
		logger:     log.WithComponent("alerting"),
	}
	metrics.SetDisplayedState(string(m.state))
	return m
}

// HandleResult consumes one detection sample. Same-state samples do not
// re-emit a transition but still advance the counters.
func (m *Machine) HandleResult(r protocol.PostureResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A real detection sample ends any error streak.
	m.errStreak = 0

	candidate := StateUpright
	if r.IsLeaning {
		candidate = StateLeaning
	}
	if candidate != m.state {
		m.transition(candidate, CauseResult, r.At)
	}

	if r.IsLeaning {
		m.leanStreak++
		if m.leanStreak > m.thresholds.LeanStreak {
			m.leanStreak = 0
			metrics.IncAlert("leaning")
			m.sink.RaiseWindow()
			m.conditionalSound()
		}
	} else {
		m.leanStreak = 0
	}

	m.dwell++
	if m.dwell >= m.thresholds.Dwell {
		m.dwell = 0
		metrics.IncAlert("dwell")
		m.sink.Notify(Notification{
			Title: TitleStandUp,
			Body:  "You have been sitting for a while. Stand up and stretch.",
		})
		m.sink.RaiseWindow()
		m.conditionalSound()
	}
}

// HandleError consumes one analyzer-reported error. Displayed state only
// degrades once the consecutive-error threshold is reached; a lone bad frame
// never flips the UI.
func (m *Machine) HandleError(e protocol.DetectionError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errStreak++
	if m.errStreak < m.thresholds.ErrStreak {
		return
	}
	m.errStreak = 0

	if m.state == StateUndetermined {
		return
	}

	m.dwell = 0
	human := Humanize(e.Message)
	m.lastError = human
	m.transition(StateUndetermined, CauseErrors, e.At)
	metrics.IncAlert("error")
	m.sink.Notify(Notification{Title: TitleInterrupted, Body: human})
}

// HandleStatus records analyzer lifecycle messages. Status never touches
// displayed state.
func (m *Machine) HandleStatus(s protocol.StatusUpdate) {
	m.logger.Debug().
		Int(log.FieldCode, s.Code).
		Str(log.FieldEvent, "analyzer.status").
		Msg(s.Message)
}

// HandleStreamFailure degrades immediately: faults of the stream itself,
// including an unsolicited process exit, are not debounced.
func (m *Machine) HandleStreamFailure(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leanStreak, m.dwell, m.errStreak = 0, 0, 0

	human := Humanize(cause.Error())
	m.lastError = human
	metrics.IncAlert("stream")
	if m.state != StateUndetermined {
		m.transition(StateUndetermined, CauseStream, time.Now())
	}
	m.sink.Notify(Notification{Title: TitleInterrupted, Body: human})
}

// Reset returns the machine to its initial state: Undetermined, counters
// zero, transient error text cleared.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leanStreak, m.dwell, m.errStreak = 0, 0, 0
	m.lastError = ""
	if m.state != StateUndetermined {
		m.transition(StateUndetermined, CauseReset, time.Now())
	}
}

// State returns the current displayed state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot is a point-in-time copy of the machine's observable state.
type Snapshot struct {
	State      State  `json:"state"`
	LeanStreak int    `json:"lean_streak"`
	Dwell      int    `json:"dwell"`
	ErrStreak  int    `json:"error_streak"`
	LastError  string `json:"last_error,omitempty"`
}

// Snapshot copies the observable state under the lock.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:      m.state,
		LeanStreak: m.leanStreak,
		Dwell:      m.dwell,
		ErrStreak:  m.errStreak,
		LastError:  m.lastError,
	}
}

func (m *Machine) transition(to State, cause string, at time.Time) {
	from := m.state
	m.state = to
	metrics.SetDisplayedState(string(to))
	m.logger.Info().
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Str("cause", cause).
		Str(log.FieldEvent, "state.changed").
		Msg("displayed state changed")
	m.sink.StateChanged(Transition{From: from, To: to, At: at, Cause: cause})
}

func (m *Machine) conditionalSound() {
	if m.sound() {
		m.sink.PlaySound()
	}
}
