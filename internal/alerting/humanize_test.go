// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanize(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "posture detection failure",
			message: "Error during posture detection: no landmarks found",
			want:    "No person detected",
		},
		{
			name:    "camera fault",
			message: "Camera hardware error: device busy",
			want:    "Camera hardware error",
		},
		{
			// "camera" outranks "monitor" when a message names both.
			name:    "camera monitor subscription failure",
			message: "Error during camera monitor subscription: timeout",
			want:    "Camera hardware error",
		},
		{
			name:    "monitor failure without camera",
			message: "monitor subscription lost",
			want:    "Subscription error",
		},
		{
			name:    "anything else",
			message: "exit status 3",
			want:    "Detection process error",
		},
		{
			name:    "match is case-insensitive",
			message: "POSTURE pipeline stalled",
			want:    "No person detected",
		},
		{
			name:    "posture outranks camera",
			message: "camera lost posture frames",
			want:    "No person detected",
		},
		{
			name:    "empty message",
			message: "",
			want:    "Detection process error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Humanize(tt.message))
		})
	}
}
