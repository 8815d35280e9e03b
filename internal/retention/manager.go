package retention

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ytget/yt-linkbot/internal/model"
)

// DefaultWindow is how long a published artifact stays reachable
const DefaultWindow = 30 * time.Minute

// Stats counts terminal deletion outcomes
type Stats struct {
	Scheduled int
	Deleted   int
	Failed    int
}

// Manager schedules deferred deletion of published artifacts
type Manager struct {
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
	remove func(string) error

	mu      sync.Mutex
	nextID  uint64
	timers  map[uint64]*time.Timer
	pending map[string]int // path -> scheduled deletions not yet fired
	stats   Stats
	closed  bool
}

// NewManager creates a retention manager with the given window
func NewManager(window time.Duration, logger *slog.Logger) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		window:  window,
		logger:  logger.With("component", "retention"),
		now:     time.Now,
		remove:  os.Remove,
		timers:  make(map[uint64]*time.Timer),
		pending: make(map[string]int),
	}
}

// Window returns the retention window
func (m *Manager) Window() time.Duration {
	return m.window
}

// Schedule registers path for deletion once the window elapses and returns
// the artifact record. The deletion cannot be cancelled.
func (m *Manager) Schedule(path, publicURL string) *model.PublishedArtifact {
	artifact := model.NewPublishedArtifact(path, publicURL, m.now(), m.window)
	m.scheduleAfter(path, m.window)
	m.logger.Info("deletion scheduled", "path", path, "expires_at", artifact.ExpiresAt)
	return artifact
}

// State reports Scheduled while a deletion for path is still pending
func (m *Manager) State(path string) (model.DeletionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending[path] > 0 {
		return model.DeletionScheduled, true
	}
	return "", false
}

// Stats returns a snapshot of deletion counters
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Sweep handles files left in dir by an earlier process whose timers died
// with it: files older than the window are deleted now, younger ones are
// scheduled for the remainder of their window. Directories are skipped.
func (m *Manager) Sweep(dir string) (removed, scheduled int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	now := m.now()
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		remaining := info.ModTime().Add(m.window).Sub(now)
		if remaining <= 0 {
			if m.delete(path) == model.DeletionDone {
				removed++
			}
			continue
		}
		m.scheduleAfter(path, remaining)
		scheduled++
	}

	m.logger.Info("sweep finished", "dir", dir, "removed", removed, "scheduled", scheduled)
	return removed, scheduled, nil
}

// Close stops timers that have not fired yet. Used on process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, timer := range m.timers {
		timer.Stop()
		delete(m.timers, id)
	}
	clear(m.pending)
	m.closed = true
}

func (m *Manager) scheduleAfter(path string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.logger.Warn("manager closed, deletion not scheduled", "path", path)
		return
	}

	m.nextID++
	id := m.nextID
	m.pending[path]++
	m.stats.Scheduled++
	m.timers[id] = time.AfterFunc(delay, func() {
		m.mu.Lock()
		delete(m.timers, id)
		m.pending[path]--
		if m.pending[path] <= 0 {
			delete(m.pending, path)
		}
		m.mu.Unlock()

		m.delete(path)
	})
}

// delete removes path; errors are logged and swallowed
func (m *Manager) delete(path string) model.DeletionState {
	err := m.remove(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case err == nil:
		m.stats.Deleted++
		m.logger.Info("artifact deleted", "path", path)
		return model.DeletionDone
	case errors.Is(err, os.ErrNotExist):
		m.stats.Failed++
		m.logger.Warn("artifact already gone", "path", path, "reason", "not_found")
	case errors.Is(err, os.ErrPermission):
		m.stats.Failed++
		m.logger.Error("artifact deletion denied", "path", path, "reason", "permission_denied", "error", err)
	default:
		m.stats.Failed++
		m.logger.Error("artifact deletion failed", "path", path, "error", err)
	}
	return model.DeletionFailed
}
