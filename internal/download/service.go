package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/ytget/yt-linkbot/internal/model"
	"github.com/ytget/yt-linkbot/internal/platform"
)

// Defaults
const (
	DefaultMaxParallel  = 2
	DefaultFetchTimeout = 30 * time.Minute
	DefaultContainer    = "mp4"
	JobIDPrefix         = "fetch-"
	stagingPattern      = "fetch-*"
)

var (
	// ErrNetworkFailure means the resolver could not fetch the rendition
	ErrNetworkFailure = errors.New("fetch failed")

	// ErrMergeFailure means video and audio could not be merged into the
	// target container
	ErrMergeFailure = errors.New("merge failed")

	// ErrStorageFailure means the output could not be staged or published
	ErrStorageFailure = errors.New("storage failed")
)

// Resolver messages that point at the post-processing step
var mergeMarkers = []string{"merg", "ffmpeg", "postprocess"}

// Config holds the orchestrator settings
type Config struct {
	DownloadDir  string // served by the artifact host
	StagingDir   string // private work area, never served
	HostBaseURL  string
	Container    string
	MaxParallel  int
	FetchTimeout time.Duration
}

// Service runs fetch jobs in the background
type Service struct {
	fetcher   Fetcher
	publisher Publisher
	cfg       Config
	logger    *slog.Logger

	jobs      map[string]*model.FetchJob
	jobsMutex sync.RWMutex
	slots     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new fetch service
func NewService(fetcher Fetcher, publisher Publisher, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Container == "" {
		cfg.Container = DefaultContainer
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		fetcher:   fetcher,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With("component", "download"),
		jobs:      make(map[string]*model.FetchJob),
		slots:     make(chan struct{}, cfg.MaxParallel),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit accepts a fetch and returns immediately with a Pending snapshot of
// the job. done is called exactly once when the job finishes.
func (s *Service) Submit(source model.SourceItem, rendition model.Rendition, done Completion) *model.FetchJob {
	job := &model.FetchJob{
		ID:        generateJobID(),
		Source:    source,
		Rendition: rendition,
		Status:    model.JobStatusPending,
		StartedAt: time.Now(),
	}

	s.jobsMutex.Lock()
	s.jobs[job.ID] = job
	snapshot := *job
	s.jobsMutex.Unlock()

	s.logger.Info("job submitted", "job_id", job.ID, "source_id", source.ID, "format_id", rendition.FormatID, "height", rendition.Height)

	s.wg.Add(1)
	go s.run(job, done)

	return &snapshot
}

// GetJob returns a snapshot of an unfinished job
func (s *Service) GetJob(id string) (*model.FetchJob, bool) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// ActiveCount returns the number of unfinished jobs
func (s *Service) ActiveCount() int {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	return len(s.jobs)
}

// Wait blocks until every submitted job has called back
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close aborts in-flight fetches and waits for their callbacks. Used on
// process shutdown only.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// run executes a job on its own goroutine
func (s *Service) run(job *model.FetchJob, done Completion) {
	defer s.wg.Done()

	select {
	case s.slots <- struct{}{}:
	case <-s.ctx.Done():
		s.finish(job, done, Outcome{Err: fmt.Errorf("%w: %v", ErrNetworkFailure, s.ctx.Err())})
		return
	}
	defer func() { <-s.slots }()

	s.setStatus(job, model.JobStatusRunning)
	s.finish(job, done, s.fetchAndPublish(job))
}

// fetchAndPublish stages the download privately and moves it into the served
// directory only once it is complete
func (s *Service) fetchAndPublish(job *model.FetchJob) Outcome {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.FetchTimeout)
	defer cancel()

	stage, err := os.MkdirTemp(s.cfg.StagingDir, stagingPattern)
	if err != nil {
		return Outcome{Err: fmt.Errorf("%w: create staging dir: %v", ErrStorageFailure, err)}
	}
	defer os.RemoveAll(stage)

	result, err := s.fetcher.Fetch(ctx, model.FetchRequest{
		URL:       job.Source.CanonicalURL,
		FormatID:  job.Rendition.FormatID,
		OutputDir: stage,
		Container: s.cfg.Container,
	})
	if err != nil {
		return Outcome{Err: classifyFetchError(err)}
	}
	if result == nil || result.OutputPath == "" {
		return Outcome{Err: fmt.Errorf("%w: resolver produced no output file", ErrMergeFailure)}
	}

	info, err := os.Stat(result.OutputPath)
	if err != nil || !info.Mode().IsRegular() {
		return Outcome{Err: fmt.Errorf("%w: output %s missing", ErrMergeFailure, result.OutputPath)}
	}

	// Same title and height from concurrent jobs map to the same name; the
	// last move wins.
	published, err := platform.MoveFile(result.OutputPath, s.cfg.DownloadDir)
	if err != nil {
		return Outcome{Err: fmt.Errorf("%w: %v", ErrStorageFailure, err)}
	}

	publicURL := platform.PublicURL(s.cfg.HostBaseURL, filepath.Base(published))
	artifact := s.publisher.Schedule(published, publicURL)

	s.jobsMutex.Lock()
	job.ArtifactPath = published
	title := result.FinalTitle
	if title == "" {
		title = job.GetDisplayTitle()
	}
	s.jobsMutex.Unlock()

	s.logger.Info("artifact published", "job_id", job.ID, "path", published, "size", humanize.IBytes(uint64(info.Size())), "url", publicURL)
	return Outcome{Title: title, PublicURL: publicURL, Artifact: artifact}
}

// finish records the terminal state, forgets the job and calls back
func (s *Service) finish(job *model.FetchJob, done Completion, outcome Outcome) {
	s.jobsMutex.Lock()
	job.FinishedAt = time.Now()
	if outcome.Err != nil {
		job.Status = model.JobStatusFailed
		job.LastError = outcome.Err.Error()
		outcome.PublicURL = ""
		outcome.Artifact = nil
	} else {
		job.Status = model.JobStatusSucceeded
		if outcome.Artifact != nil {
			job.ArtifactPath = outcome.Artifact.Path
		}
	}
	outcome.Job = *job
	delete(s.jobs, job.ID)
	s.jobsMutex.Unlock()

	if outcome.Err != nil {
		s.logger.Error("job failed", "job_id", job.ID, "source_id", job.Source.ID, "error", outcome.Err, "elapsed", job.Elapsed(job.FinishedAt))
	} else {
		s.logger.Info("job succeeded", "job_id", job.ID, "elapsed", job.Elapsed(job.FinishedAt))
	}

	if done != nil {
		done(outcome)
	}
}

func (s *Service) setStatus(job *model.FetchJob, status model.JobStatus) {
	s.jobsMutex.Lock()
	job.Status = status
	s.jobsMutex.Unlock()
}

// ClearStaging removes the per-job work dirs a previous process left in dir.
// Other entries are left alone.
func ClearStaging(dir string) (int, error) {
	leftovers, err := filepath.Glob(filepath.Join(dir, stagingPattern))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range leftovers {
		if err := os.RemoveAll(path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// classifyFetchError maps a resolver error onto the fetch error taxonomy
func classifyFetchError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range mergeMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrMergeFailure, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
}

// generateJobID generates a unique job ID using UUID v7 so IDs sort by
// creation time
func generateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(JobIDPrefix+"%d", time.Now().UnixNano())
	}
	return JobIDPrefix + id.String()
}
