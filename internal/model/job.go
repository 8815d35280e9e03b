package model

import (
	"strings"
	"time"
)

// FetchJob represents one in-flight fetch of a chosen rendition
type FetchJob struct {
	ID           string
	Source       SourceItem
	Rendition    Rendition
	Status       JobStatus
	ArtifactPath string    // published file, set on success
	LastError    string    // last error message if any
	StartedAt    time.Time // when the job was accepted
	FinishedAt   time.Time // when the job reached a terminal state
}

// GetDisplayTitle returns title, filename, or source URL in order of preference
func (j *FetchJob) GetDisplayTitle() string {
	if j.Source.Title != "" && !strings.HasPrefix(j.Source.Title, "http") {
		return j.Source.Title
	}

	if j.ArtifactPath != "" {
		parts := strings.FieldsFunc(j.ArtifactPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return j.Source.CanonicalURL
}

// Elapsed returns how long the job has run, or ran if finished
func (j *FetchJob) Elapsed(now time.Time) time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	if !j.FinishedAt.IsZero() {
		return j.FinishedAt.Sub(j.StartedAt)
	}
	return now.Sub(j.StartedAt)
}
