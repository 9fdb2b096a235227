// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package stream

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/uprightd/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	lines chan string
	diag  chan string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lines: make(chan string, 256),
		diag:  make(chan string, 256),
	}
}

func (f *fakeSource) Lines() <-chan string     { return f.lines }
func (f *fakeSource) DiagLines() <-chan string { return f.diag }

func (f *fakeSource) closeAll() {
	close(f.lines)
	close(f.diag)
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func TestRouterRoutesByKind(t *testing.T) {
	topics := NewTopics()
	defer topics.Close()

	postures := topics.Postures.Subscribe()
	errs := topics.Errors.Subscribe()
	statuses := topics.Statuses.Subscribe()

	src := newFakeSource()
	src.lines <- `{"timestamp": 1692.5, "type": "posture", "is_leaning": true, "posture": "leaning"}`
	src.lines <- `{"timestamp": 1693.0, "type": "error", "message": "Posture detection error: no landmarks", "code": 3}`
	src.lines <- `{"timestamp": 1693.5, "type": "status", "message": "Camera monitor active", "code": 0}`
	src.closeAll()

	NewRouter(topics).Run(src)

	p := recv(t, postures.C())
	assert.Equal(t, time.UnixMilli(1692500), p.At)
	assert.True(t, p.IsLeaning)
	assert.Equal(t, "leaning", p.Posture)

	e := recv(t, errs.C())
	assert.Equal(t, "Posture detection error: no landmarks", e.Message)
	assert.Equal(t, 3, e.Code)

	s := recv(t, statuses.C())
	assert.Equal(t, "Camera monitor active", s.Message)
}

func TestRouterMalformedLineSurfacesAsError(t *testing.T) {
	topics := NewTopics()
	defer topics.Close()
	errs := topics.Errors.Subscribe()

	src := newFakeSource()
	src.lines <- `this is not json`
	src.lines <- `{"timestamp": 1.0, "type": "telemetry"}`
	src.closeAll()

	NewRouter(topics).Run(src)

	first := recv(t, errs.C())
	assert.Equal(t, `this is not json`, first.Message)
	assert.Equal(t, protocol.DefaultErrorCode, first.Code)

	second := recv(t, errs.C())
	assert.Equal(t, `{"timestamp": 1.0, "type": "telemetry"}`, second.Message)
}

func TestRouterDiagnosticsDoNotReachTopics(t *testing.T) {
	topics := NewTopics()
	defer topics.Close()
	errs := topics.Errors.Subscribe()

	src := newFakeSource()
	src.diag <- "INFO 2026-08-22 camera warmed up"
	src.diag <- "not json either"
	src.closeAll()

	NewRouter(topics).Run(src)

	select {
	case e := <-errs.C():
		t.Fatalf("diagnostic line leaked onto error topic: %+v", e)
	default:
	}
}

// The router must keep draining even with nobody subscribed, or the producing
// process could never reach EOF.
func TestRouterDrainsWithoutSubscribers(t *testing.T) {
	topics := NewTopics()
	defer topics.Close()

	src := newFakeSource()
	for i := 0; i < 200; i++ {
		src.lines <- fmt.Sprintf(`{"timestamp": %d.0, "type": "posture", "is_leaning": false, "posture": "upright"}`, i)
	}
	src.closeAll()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewRouter(topics).Run(src)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("router stalled with no subscribers")
	}
}

func TestTopicsCloseClosesSubscriptions(t *testing.T) {
	topics := NewTopics()
	sub := topics.Postures.Subscribe()
	topics.Close()

	_, ok := <-sub.C()
	require.False(t, ok)
}
