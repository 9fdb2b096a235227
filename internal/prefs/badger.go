// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Keys carry a "pref:" prefix so the database stays scannable if other
// record families ever share it.
const (
	keySound       = "pref:sound_enabled"
	keySensitivity = "pref:sensitivity"
)

// Badger is the on-disk Store. Values are JSON.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the preference database at dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}
	return &Badger{db: db}, nil
}

func (s *Badger) Close() error { return s.db.Close() }

func (s *Badger) SoundEnabled() (bool, error) {
	v := DefaultSoundEnabled
	err := s.get(keySound, &v)
	return v, err
}

func (s *Badger) SetSoundEnabled(enabled bool) error {
	return s.put(keySound, enabled)
}

func (s *Badger) Sensitivity() (float64, error) {
	v := DefaultSensitivity
	err := s.get(keySensitivity, &v)
	return v, err
}

func (s *Badger) SetSensitivity(v float64) error {
	if err := validSensitivity(v); err != nil {
		return err
	}
	return s.put(keySensitivity, v)
}

// get leaves out untouched when the key was never written, so callers
// pre-load the default.
func (s *Badger) get(key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *Badger) put(key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf)
	})
}

var _ Store = (*Badger)(nil)
