package download

import (
	"context"

	"github.com/ytget/yt-linkbot/internal/model"
)

// Fetcher runs one blocking download+merge through the media resolver
type Fetcher interface {
	Fetch(ctx context.Context, req model.FetchRequest) (*model.FetchResult, error)
}

// Publisher takes ownership of a published file until it expires
type Publisher interface {
	Schedule(path, publicURL string) *model.PublishedArtifact
}

// Orchestrator defines the interface for the fetch service.
type Orchestrator interface {
	Submit(source model.SourceItem, rendition model.Rendition, done Completion) *model.FetchJob
	GetJob(id string) (*model.FetchJob, bool)
	ActiveCount() int
}

// Outcome is what a completion callback receives. PublicURL and Artifact are
// set only when Err is nil.
type Outcome struct {
	Job       model.FetchJob
	Title     string
	PublicURL string
	Artifact  *model.PublishedArtifact
	Err       error
}

// Completion is invoked once per job, on the job's goroutine
type Completion func(Outcome)
