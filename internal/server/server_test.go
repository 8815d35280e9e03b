package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	return New(dir, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(s, "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Alive") {
		t.Errorf("Unexpected index response %d %q", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	s.SetHealth(func() map[string]any { return map[string]any{"active_jobs": 2} })

	rec := get(s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["status"] != "ok" || body["active_jobs"] != float64(2) {
		t.Errorf("Unexpected health body %v", body)
	}
}

func TestDownload(t *testing.T) {
	s, dir := newTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "Clip - 720p.mp4"), []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := get(s, "/downloads/Clip%20-%20720p.mp4")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "video-bytes" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, "attachment") || !strings.Contains(disposition, "Clip - 720p.mp4") {
		t.Errorf("Expected attachment disposition, got %q", disposition)
	}
}

func TestDownload_NonASCIIName(t *testing.T) {
	s, dir := newTestServer(t)
	name := "ڤیدیۆ - 480p.mp4"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := get(s, "/downloads/"+url.PathEscape(name))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Errorf("Expected attachment disposition, got %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestDownload_Rejected(t *testing.T) {
	s, dir := newTestServer(t)
	os.WriteFile(filepath.Join(dir, "movie.mp4.part"), []byte("partial"), 0o644)
	os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644)
	os.Mkdir(filepath.Join(dir, "sub"), 0o755)
	os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.txt"), []byte("secret"), 0o644)

	paths := []string{
		"/downloads/missing.mp4",
		"/downloads/movie.mp4.part",
		"/downloads/.hidden",
		"/downloads/sub",
		"/downloads/..%2Fsecret.txt",
		"/downloads/",
	}

	for _, path := range paths {
		rec := get(s, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Errorf("GET %s leaked a file outside the directory", path)
		}
	}
}

func TestHandleWebhook(t *testing.T) {
	s, _ := newTestServer(t)
	called := false
	s.HandleWebhook("/webhook/abc", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/abc", strings.NewReader("{}")))
	if rec.Code != http.StatusOK || !called {
		t.Errorf("Expected webhook handler to run, got %d", rec.Code)
	}

	if rec := get(s, "/webhook/abc"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected GET to be rejected, got %d", rec.Code)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	s, _ := newTestServer(t)

	if err := s.Run(context.Background(), "256.0.0.1:bad"); err == nil {
		t.Error("Expected listen error")
	}
}
