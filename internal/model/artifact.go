package model

import "time"

// PublishedArtifact is a file made reachable through the artifact host
type PublishedArtifact struct {
	Path        string
	PublicURL   string
	PublishedAt time.Time
	ExpiresAt   time.Time
}

// NewPublishedArtifact creates an artifact record expiring after window
func NewPublishedArtifact(path, publicURL string, publishedAt time.Time, window time.Duration) *PublishedArtifact {
	return &PublishedArtifact{
		Path:        path,
		PublicURL:   publicURL,
		PublishedAt: publishedAt,
		ExpiresAt:   publishedAt.Add(window),
	}
}

// Expired reports whether the retention window has elapsed at now
func (a *PublishedArtifact) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
