// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/uprightd/internal/alerting"
	"github.com/ManuGH/uprightd/internal/history"
	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/metrics"
)

// machineSink receives the alerting machine's outputs for one session.
// Events are published inline; desktop side effects run on tracked
// goroutines because the machine's sink contract forbids blocking.
type machineSink struct {
	c  *Controller
	s  *session
	wg sync.WaitGroup
}

func newMachineSink(c *Controller, s *session) *machineSink {
	return &machineSink{c: c, s: s}
}

func (k *machineSink) StateChanged(t alerting.Transition) {
	k.c.events.Publish(Event{
		Type:      EventState,
		At:        t.At,
		SessionID: k.s.id,
		From:      string(t.From),
		To:        string(t.To),
		Cause:     t.Cause,
	})
}

func (k *machineSink) Notify(n alerting.Notification) {
	at := time.Now()
	kind := alertKind(n.Title)
	k.c.events.Publish(Event{
		Type:      EventAlert,
		At:        at,
		SessionID: k.s.id,
		Kind:      kind,
		Title:     n.Title,
		Body:      n.Body,
	})
	k.async(func(ctx context.Context) {
		if err := k.c.notifier.Notify(ctx, n.Title, n.Body); err != nil {
			k.c.logger.Warn().
				Err(err).
				Str("title", n.Title).
				Str(log.FieldEvent, "notify.error").
				Msg("notification delivery failed")
		}
		if err := k.c.history.RecordAlert(ctx, history.Alert{
			SessionID: k.s.id,
			At:        at,
			Kind:      kind,
			Title:     n.Title,
			Body:      n.Body,
		}); err != nil {
			k.c.logger.Warn().
				Err(err).
				Str(log.FieldSessionID, k.s.id).
				Str(log.FieldEvent, "history.alert_error").
				Msg("failed to record alert")
		}
	})
}

func (k *machineSink) RaiseWindow() {
	k.async(func(ctx context.Context) {
		if err := k.c.raiser.Raise(ctx); err != nil {
			metrics.IncNotification("window", "error")
			k.c.logger.Warn().
				Err(err).
				Str(log.FieldEvent, "notify.raise_error").
				Msg("window raise failed")
			return
		}
		metrics.IncNotification("window", "sent")
	})
}

func (k *machineSink) PlaySound() {
	k.async(func(ctx context.Context) {
		if err := k.c.sound.Play(ctx); err != nil {
			metrics.IncNotification("sound", "error")
			k.c.logger.Warn().
				Err(err).
				Str(log.FieldEvent, "notify.sound_error").
				Msg("alert sound failed")
			return
		}
		metrics.IncNotification("sound", "sent")
	})
}

// async runs f with the session context on a tracked goroutine. wait blocks
// until all in-flight side effects finished; canceling the session context
// aborts them.
func (k *machineSink) async(f func(context.Context)) {
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		f(k.s.ctx)
	}()
}

func (k *machineSink) wait() { k.wg.Wait() }

func alertKind(title string) string {
	switch title {
	case alerting.TitleStandUp:
		return "dwell"
	case alerting.TitleInterrupted:
		return "interrupted"
	default:
		return "alert"
	}
}

var _ alerting.Sink = (*machineSink)(nil)
