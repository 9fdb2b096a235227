// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build darwin

package notify

import (
	"context"
	"fmt"
	"strings"
)

// Desktop returns osascript/afplay-backed collaborators.
func Desktop(opts DesktopOptions) DesktopSet {
	set := DesktopSet{
		Notifier: darwinNotifier{},
		Raiser:   NopRaiser{},
		Sound:    NopSound{},
	}
	if opts.AppWindow != "" {
		set.Raiser = darwinRaiser{app: opts.AppWindow}
	}
	if opts.SoundFile != "" {
		set.Sound = darwinSound{file: opts.SoundFile}
	}
	return set
}

// quoteAS escapes a string for interpolation into an AppleScript literal.
func quoteAS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

type darwinNotifier struct{}

func (darwinNotifier) Notify(ctx context.Context, title, body string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, quoteAS(body), quoteAS(title))
	return run(ctx, "osascript", "-e", script)
}

type darwinRaiser struct{ app string }

func (r darwinRaiser) Raise(ctx context.Context) error {
	script := fmt.Sprintf(`tell application "%s" to activate`, quoteAS(r.app))
	return run(ctx, "osascript", "-e", script)
}

type darwinSound struct{ file string }

func (s darwinSound) Play(ctx context.Context) error {
	return run(ctx, "afplay", s.file)
}
