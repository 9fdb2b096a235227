// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"errors"
	"fmt"
)

// NewStore creates a Store for the configured backend. An empty backend
// falls back to memory.
func NewStore(backend, dir string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemory(), nil
	case "badger":
		if dir == "" {
			return nil, errors.New("badger backend requires a data directory")
		}
		return OpenBadger(dir)
	default:
		return nil, fmt.Errorf("unknown preferences backend: %s", backend)
	}
}
