package retention

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ytget/yt-linkbot/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("artifact"), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNewManager_DefaultWindow(t *testing.T) {
	m := NewManager(0, discardLogger())
	if m.Window() != DefaultWindow {
		t.Errorf("Expected default window %v, got %v", DefaultWindow, m.Window())
	}
	if DefaultWindow != 1800*time.Second {
		t.Errorf("Expected default window of 1800s, got %v", DefaultWindow)
	}
}

func TestSchedule_DeletesAfterWindow(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "clip - 720p.mp4")

	m := NewManager(time.Second, discardLogger())
	defer m.Close()

	start := time.Now()
	artifact := m.Schedule(path, "https://host/downloads/clip%20-%20720p.mp4")

	if !exists(path) {
		t.Fatal("artifact should be present right after scheduling")
	}
	if state, ok := m.State(path); !ok || state != model.DeletionScheduled {
		t.Errorf("expected Scheduled state, got %q, %v", state, ok)
	}
	if got := artifact.ExpiresAt.Sub(artifact.PublishedAt); got != time.Second {
		t.Errorf("expected ExpiresAt = PublishedAt + 1s, got %v", got)
	}

	time.Sleep(500 * time.Millisecond)
	if !exists(path) {
		t.Fatal("artifact deleted before the window elapsed")
	}

	if !waitFor(t, 2*time.Second, func() bool { return !exists(path) }) {
		t.Fatal("artifact still present after the window elapsed")
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("artifact deleted after %v, before the 1s window", elapsed)
	}

	if !waitFor(t, time.Second, func() bool { return m.Stats().Deleted == 1 }) {
		t.Errorf("expected one deletion, got stats %+v", m.Stats())
	}
	if _, ok := m.State(path); ok {
		t.Error("expected no pending state after deletion")
	}
}

func TestSchedule_MissingFileIsSwallowed(t *testing.T) {
	m := NewManager(10*time.Millisecond, discardLogger())
	defer m.Close()

	m.Schedule(filepath.Join(t.TempDir(), "gone.mp4"), "")

	if !waitFor(t, time.Second, func() bool { return m.Stats().Failed == 1 }) {
		t.Errorf("expected one failed deletion, got %+v", m.Stats())
	}
}

func TestSchedule_PermissionDeniedIsSwallowed(t *testing.T) {
	m := NewManager(10*time.Millisecond, discardLogger())
	defer m.Close()

	calls := make(chan string, 1)
	m.remove = func(path string) error {
		calls <- path
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrPermission}
	}

	m.Schedule("/srv/downloads/locked.mp4", "")

	select {
	case got := <-calls:
		if got != "/srv/downloads/locked.mp4" {
			t.Errorf("unexpected path %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("deletion never attempted")
	}

	if !waitFor(t, time.Second, func() bool { return m.Stats().Failed == 1 }) {
		t.Errorf("expected one failed deletion, got %+v", m.Stats())
	}

	select {
	case <-calls:
		t.Error("failed deletion must not be retried")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	stale := writeFile(t, dir, "stale.mp4")
	fresh := writeFile(t, dir, "fresh.mp4")
	if err := os.Mkdir(filepath.Join(dir, ".staging"), 0o755); err != nil {
		t.Fatalf("failed to create staging dir: %v", err)
	}

	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("failed to age file: %v", err)
	}

	m := NewManager(time.Hour, discardLogger())
	defer m.Close()

	removed, scheduled, err := m.Sweep(dir)
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if removed != 1 || scheduled != 1 {
		t.Errorf("expected 1 removed and 1 scheduled, got %d and %d", removed, scheduled)
	}
	if exists(stale) {
		t.Error("stale artifact should be removed")
	}
	if !exists(fresh) {
		t.Error("fresh artifact should be kept until its window elapses")
	}
	if _, ok := m.State(fresh); !ok {
		t.Error("fresh artifact should be scheduled")
	}
	if !exists(filepath.Join(dir, ".staging")) {
		t.Error("directories must be left alone")
	}
}

func TestSweep_MissingDirectory(t *testing.T) {
	m := NewManager(time.Hour, discardLogger())
	if _, _, err := m.Sweep(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestClose_StopsPendingTimers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "keep.mp4")

	m := NewManager(50*time.Millisecond, discardLogger())
	m.Schedule(path, "")
	m.Close()

	time.Sleep(200 * time.Millisecond)
	if !exists(path) {
		t.Error("closed manager must not delete files")
	}

	m.Schedule(path, "")
	time.Sleep(100 * time.Millisecond)
	if !exists(path) {
		t.Error("schedule after close must not arm a timer")
	}
}
