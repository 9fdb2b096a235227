// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package notify delivers alerting intents to the desktop: user
// notifications, window raising, and alert sounds. Delivery is always
// best-effort; a failed call is logged by the caller, never fatal.
package notify

import "context"

// Notifier sends a fire-and-forget user notification.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// WindowRaiser brings the application window to the foreground.
type WindowRaiser interface {
	Raise(ctx context.Context) error
}

// SoundPlayer plays the alert sound.
type SoundPlayer interface {
	Play(ctx context.Context) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, title, body string) error

func (f NotifierFunc) Notify(ctx context.Context, title, body string) error {
	return f(ctx, title, body)
}

// Nop implementations for tests and headless runs.
type (
	NopNotifier struct{}
	NopRaiser   struct{}
	NopSound    struct{}
)

func (NopNotifier) Notify(context.Context, string, string) error { return nil }

func (NopRaiser) Raise(context.Context) error { return nil }

func (NopSound) Play(context.Context) error { return nil }
