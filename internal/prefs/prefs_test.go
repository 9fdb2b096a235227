// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	b, err := NewStore("badger", t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"badger": b,
	}
}

func TestDefaultsWhenUnset(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sound, err := s.SoundEnabled()
			require.NoError(t, err)
			assert.Equal(t, DefaultSoundEnabled, sound)

			sens, err := s.Sensitivity()
			require.NoError(t, err)
			assert.Equal(t, DefaultSensitivity, sens)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetSoundEnabled(false))
			sound, err := s.SoundEnabled()
			require.NoError(t, err)
			assert.False(t, sound)

			require.NoError(t, s.SetSensitivity(0.75))
			sens, err := s.Sensitivity()
			require.NoError(t, err)
			assert.Equal(t, 0.75, sens)
		})
	}
}

func TestSensitivityRangeEnforced(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetSensitivity(0.3))
			require.Error(t, s.SetSensitivity(1.5))
			require.Error(t, s.SetSensitivity(-0.1))

			sens, err := s.Sensitivity()
			require.NoError(t, err)
			assert.Equal(t, 0.3, sens, "rejected writes must not clobber the stored value")
		})
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetSoundEnabled(false))
	require.NoError(t, s.SetSensitivity(0.9))
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	sound, err := s.SoundEnabled()
	require.NoError(t, err)
	assert.False(t, sound)

	sens, err := s.Sensitivity()
	require.NoError(t, err)
	assert.Equal(t, 0.9, sens)
}

func TestNewStoreBackends(t *testing.T) {
	s, err := NewStore("", "")
	require.NoError(t, err)
	_, ok := s.(*Memory)
	assert.True(t, ok, "empty backend falls back to memory")

	_, err = NewStore("badger", "")
	require.Error(t, err)

	_, err = NewStore("postgres", "")
	require.Error(t, err)
}
