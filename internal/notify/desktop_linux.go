// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build linux

package notify

import "context"

// Desktop returns exec-backed collaborators for common Linux desktops:
// notify-send for notifications, xdotool (or wmctrl) for window raising,
// paplay (or aplay) for sound.
func Desktop(opts DesktopOptions) DesktopSet {
	set := DesktopSet{
		Notifier: linuxNotifier{},
		Raiser:   NopRaiser{},
		Sound:    NopSound{},
	}
	if opts.AppWindow != "" {
		set.Raiser = linuxRaiser{window: opts.AppWindow}
	}
	if opts.SoundFile != "" {
		set.Sound = linuxSound{file: opts.SoundFile}
	}
	return set
}

type linuxNotifier struct{}

func (linuxNotifier) Notify(ctx context.Context, title, body string) error {
	return run(ctx, "notify-send", "--app-name=uprightd", title, body)
}

type linuxRaiser struct{ window string }

func (r linuxRaiser) Raise(ctx context.Context) error {
	if hasBinary("xdotool") {
		return run(ctx, "xdotool", "search", "--name", r.window, "windowactivate")
	}
	return run(ctx, "wmctrl", "-a", r.window)
}

type linuxSound struct{ file string }

func (s linuxSound) Play(ctx context.Context) error {
	if hasBinary("paplay") {
		return run(ctx, "paplay", s.file)
	}
	return run(ctx, "aplay", "-q", s.file)
}
