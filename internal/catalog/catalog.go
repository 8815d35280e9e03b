package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ytget/yt-linkbot/internal/model"
	"github.com/ytget/yt-linkbot/internal/selection"
)

// DefaultContainer is the container renditions must use to be offered
const DefaultContainer = "mp4"

var (
	// ErrNoPlayableFormats is returned when no format survives filtering
	ErrNoPlayableFormats = errors.New("no playable formats")

	// ErrUpstreamFailure wraps any error raised by the media resolver
	ErrUpstreamFailure = errors.New("media resolver failed")
)

// Inspector lists a URL's formats without downloading it
type Inspector interface {
	Inspect(ctx context.Context, url string) (*model.MediaInfo, error)
}

// Result is a resolved catalog: the source item, its ranked renditions and
// one choice per rendition, in the same order
type Result struct {
	Source     model.SourceItem
	Renditions []model.Rendition
	Choices    []model.Choice
}

// Rendition returns the rendition with the given format ID
func (r *Result) Rendition(formatID string) (model.Rendition, bool) {
	for _, rendition := range r.Renditions {
		if rendition.FormatID == formatID {
			return rendition, true
		}
	}
	return model.Rendition{}, false
}

// Catalog resolves source URLs into renditions
type Catalog struct {
	inspector Inspector
	container string
	logger    *slog.Logger
}

// New creates a catalog that offers renditions in the given container
func New(inspector Inspector, container string, logger *slog.Logger) *Catalog {
	if container == "" {
		container = DefaultContainer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		inspector: inspector,
		container: container,
		logger:    logger.With("component", "catalog"),
	}
}

// Resolve inspects sourceURL and builds its rendition list
func (c *Catalog) Resolve(ctx context.Context, sourceURL string) (*Result, error) {
	info, err := c.inspector.Inspect(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}

	source := model.SourceItem{
		ID:           info.ID,
		Title:        info.Title,
		CanonicalURL: info.WebpageURL,
	}
	if source.CanonicalURL == "" {
		source.CanonicalURL = sourceURL
	}

	renditions := Rank(Filter(info.Formats, c.container))

	result := &Result{Source: source}
	for _, rendition := range renditions {
		token, err := selection.Encode(rendition.FormatID, source.ID)
		if err != nil {
			c.logger.Warn("skipping rendition", "format_id", rendition.FormatID, "source_id", source.ID, "error", err)
			continue
		}
		result.Renditions = append(result.Renditions, rendition)
		result.Choices = append(result.Choices, model.Choice{
			Label: rendition.Label(),
			Data:  string(token),
		})
	}

	if len(result.Renditions) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoPlayableFormats, sourceURL)
	}

	c.logger.Debug("catalog resolved", "source_id", source.ID, "formats", len(info.Formats), "renditions", len(result.Renditions))
	return result, nil
}

// Filter keeps formats that are video-only, use container and report both a
// size and a height. Order is preserved.
func Filter(formats []model.MediaFormat, container string) []model.MediaFormat {
	kept := make([]model.MediaFormat, 0, len(formats))
	for _, f := range formats {
		if !f.VideoOnly || f.ContainerExt != container || f.SizeBytes <= 0 || f.Height <= 0 {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// Rank keeps the first format seen for each height and sorts the survivors
// by height, tallest first
func Rank(formats []model.MediaFormat) []model.Rendition {
	seen := make(map[int]bool, len(formats))
	renditions := make([]model.Rendition, 0, len(formats))
	for _, f := range formats {
		if seen[f.Height] {
			continue
		}
		seen[f.Height] = true
		renditions = append(renditions, model.Rendition{
			FormatID:        f.FormatID,
			Height:          f.Height,
			ApproxSizeBytes: f.SizeBytes,
			ContainerExt:    f.ContainerExt,
		})
	}

	sort.SliceStable(renditions, func(i, j int) bool {
		return renditions[i].Height > renditions[j].Height
	})
	return renditions
}
