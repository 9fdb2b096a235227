// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func newTestHolder(t *testing.T, content string) (*Holder, string) {
	t.Helper()
	path := writeConfig(t, content)
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load initial config: %v", err)
	}
	return NewHolder(initial, loader, path), path
}

func TestHolderGetReturnsCopy(t *testing.T) {
	holder, _ := newTestHolder(t, "listen: \"127.0.0.1:9999\"\n")

	got := holder.Get()
	if got.Listen != "127.0.0.1:9999" {
		t.Fatalf("unexpected listen %q", got.Listen)
	}

	got.Listen = "modified"
	if holder.Get().Listen != "127.0.0.1:9999" {
		t.Error("Get() should return a copy, not a reference")
	}
}

func TestHolderReloadSuccess(t *testing.T) {
	holder, path := newTestHolder(t, "listen: \"127.0.0.1:9999\"\n")

	if err := os.WriteFile(path, []byte("listen: \"127.0.0.1:8888\"\n"), 0o600); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	if err := holder.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}

	if got := holder.Get().Listen; got != "127.0.0.1:8888" {
		t.Errorf("expected reloaded listen, got %q", got)
	}
}

func TestHolderReloadKeepsOldConfigOnFailure(t *testing.T) {
	holder, path := newTestHolder(t, "listen: \"127.0.0.1:9999\"\n")

	// Sensitivity out of range fails validation
	bad := "analyzer:\n  sensitivity: 5.0\n"
	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatalf("failed to write invalid config: %v", err)
	}

	if err := holder.Reload(context.Background()); err == nil {
		t.Fatal("expected Reload() to fail with validation error, got nil")
	}

	if got := holder.Get().Listen; got != "127.0.0.1:9999" {
		t.Errorf("expected old config to be preserved, got listen %q", got)
	}
}

func TestHolderRegisterListener(t *testing.T) {
	holder, path := newTestHolder(t, "listen: \"127.0.0.1:9999\"\n")

	ch := make(chan AppConfig, 1)
	holder.RegisterListener(ch)

	if err := os.WriteFile(path, []byte("listen: \"127.0.0.1:8888\"\n"), 0o600); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}
	if err := holder.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}

	select {
	case received := <-ch:
		if received.Listen != "127.0.0.1:8888" {
			t.Errorf("listener received listen %q, want updated value", received.Listen)
		}
	default:
		t.Error("listener did not receive config update")
	}
}

func TestHolderNotifyListenersNonBlocking(t *testing.T) {
	holder, path := newTestHolder(t, "listen: \"127.0.0.1:9999\"\n")

	// Full channel that nobody reads; Reload must not block on it
	full := make(chan AppConfig)
	holder.RegisterListener(full)

	if err := os.WriteFile(path, []byte("listen: \"127.0.0.1:8888\"\n"), 0o600); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- holder.Reload(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Reload() failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Reload() blocked on a full listener channel")
	}
}

func TestHolderStartWatcherWithoutPath(t *testing.T) {
	loader := NewLoader("", "test")
	initial, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	holder := NewHolder(initial, loader, "")

	if err := holder.StartWatcher(context.Background()); err != nil {
		t.Fatalf("StartWatcher() without path should be a no-op, got %v", err)
	}
}

func TestHolderWatcherReloadsOnWrite(t *testing.T) {
	holder, path := newTestHolder(t, "listen: \"127.0.0.1:9999\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := holder.StartWatcher(ctx); err != nil {
		t.Fatalf("StartWatcher() failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("listen: \"127.0.0.1:8888\"\n"), 0o600); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	// The watcher debounces for 500ms before reloading
	deadline := time.After(5 * time.Second)
	for {
		if holder.Get().Listen == "127.0.0.1:8888" {
			return
		}
		select {
		case <-deadline:
			t.Fatal("watcher did not reload config within deadline")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
