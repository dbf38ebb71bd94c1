package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNotificationManager_CreatesSignalsDir(t *testing.T) {
	dir := t.TempDir()
	nm, err := NewNotificationManager(dir)
	if err != nil {
		t.Fatalf("NewNotificationManager() error = %v", err)
	}
	defer nm.Close()

	if _, err := os.Stat(filepath.Join(dir, "signals")); err != nil {
		t.Errorf("signals dir not created: %v", err)
	}
	if nm.ShouldStop() || nm.ShouldPause() {
		t.Error("fresh manager should not be stopped or paused")
	}
}

func TestNotificationManager_KillCancelsContext(t *testing.T) {
	nm, err := NewNotificationManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewNotificationManager() error = %v", err)
	}
	defer nm.Close()

	ctx, cancel := nm.CancelOnKill(context.Background())
	defer cancel()

	if err := nm.SendKill(); err != nil {
		t.Fatalf("SendKill() error = %v", err)
	}
	if !nm.ShouldStop() {
		t.Fatal("ShouldStop() = false after SendKill")
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled by kill signal")
	}
}

func TestNotificationManager_PauseAndClear(t *testing.T) {
	nm, err := NewNotificationManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewNotificationManager() error = %v", err)
	}
	defer nm.Close()

	if err := nm.SendPause(); err != nil {
		t.Fatalf("SendPause() error = %v", err)
	}
	if !nm.ShouldPause() {
		t.Error("ShouldPause() = false after SendPause")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := nm.WaitWhilePaused(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitWhilePaused() = %v, want deadline exceeded while paused", err)
	}

	nm.ClearSignals()
	if nm.ShouldPause() || nm.ShouldStop() {
		t.Error("signals should be cleared")
	}
	if err := nm.WaitWhilePaused(context.Background()); err != nil {
		t.Errorf("WaitWhilePaused() after clear = %v", err)
	}
}

func TestNotificationManager_CloseTwice(t *testing.T) {
	nm, err := NewNotificationManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewNotificationManager() error = %v", err)
	}
	nm.Close()
	nm.Close()
}
