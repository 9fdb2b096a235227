// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !linux && !darwin

package notify

// Desktop has no adapters on this platform; everything degrades to no-ops.
func Desktop(DesktopOptions) DesktopSet {
	return DesktopSet{Notifier: NopNotifier{}, Raiser: NopRaiser{}, Sound: NopSound{}}
}
