// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePosture(t *testing.T) {
	d := Decode([]byte(`{"timestamp":1692.5,"type":"posture","code":0,"is_leaning":true,"posture":"leaning"}`))

	require.Equal(t, KindPosture, d.Kind)
	assert.True(t, d.Posture.IsLeaning)
	assert.Equal(t, "leaning", d.Posture.Posture)
	assert.Equal(t, 0, d.Posture.Code)
	assert.Equal(t, time.UnixMilli(1692500), d.Posture.At)
}

func TestDecodeDefaults(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Decoded
	}{
		{
			name: "posture with all optionals missing",
			line: `{"timestamp":1,"type":"posture"}`,
			want: Decoded{Kind: KindPosture, Posture: PostureResult{
				At: time.UnixMilli(1000), IsLeaning: false, Posture: "unknown", Code: 0,
			}},
		},
		{
			name: "explicit false is not a missing field",
			line: `{"timestamp":1,"type":"posture","is_leaning":false,"posture":"upright"}`,
			want: Decoded{Kind: KindPosture, Posture: PostureResult{
				At: time.UnixMilli(1000), IsLeaning: false, Posture: "upright", Code: 0,
			}},
		},
		{
			name: "error with message and code missing",
			line: `{"timestamp":2,"type":"error"}`,
			want: Decoded{Kind: KindError, Err: DetectionError{
				At: time.UnixMilli(2000), Message: "Unknown error", Code: 1,
			}},
		},
		{
			name: "status with message and code missing",
			line: `{"timestamp":3,"type":"status"}`,
			want: Decoded{Kind: KindStatus, Status: StatusUpdate{
				At: time.UnixMilli(3000), Message: "Unknown status", Code: 0,
			}},
		},
		{
			name: "error keeps explicit code",
			line: `{"timestamp":4,"type":"error","message":"Camera hardware error: device busy","code":10}`,
			want: Decoded{Kind: KindError, Err: DetectionError{
				At: time.UnixMilli(4000), Message: "Camera hardware error: device busy", Code: 10,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode([]byte(tt.line)))
		})
	}
}

func TestDecodeBadLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "malformed json", line: `{"timestamp":1,"type":`},
		{name: "not an object", line: `42`},
		{name: "missing type", line: `{"timestamp":1,"code":0}`},
		{name: "unrecognized type", line: `{"timestamp":1,"type":"heartbeat"}`},
		{name: "empty line", line: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decode([]byte(tt.line))
			require.Equal(t, KindError, d.Kind, "bad lines must surface on the error stream")
			assert.True(t, d.Malformed)
			assert.Equal(t, tt.line, d.Err.Message, "original line must be carried verbatim")
			assert.Equal(t, DefaultErrorCode, d.Err.Code)
		})
	}
}

func TestDecodeNeverPanicsAndKeepsGoing(t *testing.T) {
	lines := []string{
		`{"timestamp":1,"type":"posture","is_leaning":true}`,
		`garbage`,
		`{"timestamp":2,"type":"posture","is_leaning":false}`,
	}

	kinds := make([]Kind, 0, len(lines))
	for _, line := range lines {
		kinds = append(kinds, Decode([]byte(line)).Kind)
	}
	assert.Equal(t, []Kind{KindPosture, KindError, KindPosture}, kinds)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "leaning", line: `{"timestamp":1692.5,"type":"posture","code":0,"is_leaning":true,"posture":"leaning"}`},
		{name: "upright", line: `{"timestamp":1692.125,"type":"posture","code":0,"is_leaning":false,"posture":"upright"}`},
		{name: "nonzero code", line: `{"timestamp":10,"type":"posture","code":7,"is_leaning":true,"posture":"leaning"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Decode([]byte(tt.line))
			require.Equal(t, KindPosture, first.Kind)

			encoded, err := Encode(first)
			require.NoError(t, err)

			second := Decode(encoded)
			require.Equal(t, KindPosture, second.Kind)
			assert.Equal(t, first.Posture.IsLeaning, second.Posture.IsLeaning)
			assert.Equal(t, first.Posture.Posture, second.Posture.Posture)
			assert.Equal(t, first.Posture.Code, second.Posture.Code)
			assert.Equal(t, first.Posture.At, second.Posture.At)
		})
	}
}

func TestEncodeError(t *testing.T) {
	encoded, err := Encode(Decoded{Kind: KindError, Err: DetectionError{
		At: time.UnixMilli(5000), Message: "Posture detection error: no landmarks", Code: 3,
	}})
	require.NoError(t, err)

	d := Decode(encoded)
	require.Equal(t, KindError, d.Kind)
	assert.Equal(t, "Posture detection error: no landmarks", d.Err.Message)
	assert.Equal(t, 3, d.Err.Code)
}

func TestEncodeUnknownKind(t *testing.T) {
	_, err := Encode(Decoded{Kind: Kind("bogus")})
	require.ErrorIs(t, err, ErrUnknownKind)
}
