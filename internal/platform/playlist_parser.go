package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	ytplaylist "github.com/ytget/ytdlp/v2"

	"github.com/ytget/yt-linkbot/internal/model"
)

// Timeout constants
const (
	DefaultPlaylistParseTimeout = 30 * time.Second
)

// URL parameters
const (
	PlaylistQueryParam = "list"
	VideoQueryParam    = "v"
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// Playlist title constants
const (
	DefaultPlaylistTitle = "Untitled Playlist"
	PlaylistSuffix       = " Playlist"
	MinPrefixLength      = 10
	MaxTitleLength       = 50
	TitleTruncateSuffix  = "..."
)

// playlistSource is the slice of the ytdlp/v2 API used for expansion
type playlistSource interface {
	PlaylistItems(ctx context.Context, playlistID string, limit int) ([]*model.PlaylistVideo, error)
}

// libraryPlaylistSource reads playlist items through github.com/ytget/ytdlp/v2
type libraryPlaylistSource struct{}

func (libraryPlaylistSource) PlaylistItems(ctx context.Context, playlistID string, limit int) ([]*model.PlaylistVideo, error) {
	items, err := ytplaylist.New().GetPlaylistItemsAll(ctx, playlistID, limit)
	if err != nil {
		return nil, err
	}
	videos := make([]*model.PlaylistVideo, 0, len(items))
	for _, it := range items {
		videos = append(videos, &model.PlaylistVideo{
			ID:    it.VideoID,
			Title: it.Title,
		})
	}
	return videos, nil
}

// PlaylistParserService expands playlist links into their videos
type PlaylistParserService struct {
	timeout time.Duration
	limit   int
	source  playlistSource
}

// NewPlaylistParserService creates a playlist parser returning at most limit
// videos; a non-positive limit means all of them
func NewPlaylistParserService(limit int) *PlaylistParserService {
	return &PlaylistParserService{
		timeout: DefaultPlaylistParseTimeout,
		limit:   limit,
		source:  libraryPlaylistSource{},
	}
}

// SetTimeout sets the timeout for playlist parsing
func (p *PlaylistParserService) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// IsPlaylistURL reports whether rawURL names a playlist and not a single
// video. Watch links that merely carry a list parameter resolve to the video.
func IsPlaylistURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	q := u.Query()
	return q.Get(PlaylistQueryParam) != "" && q.Get(VideoQueryParam) == ""
}

// ParsePlaylist expands a playlist URL into its videos
func (p *PlaylistParserService) ParsePlaylist(ctx context.Context, rawURL string) (*model.Playlist, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	playlistID, err := extractPlaylistID(rawURL)
	if err != nil {
		return nil, err
	}

	videos, err := p.source.PlaylistItems(ctx, playlistID, p.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	playlist := model.NewPlaylist(playlistID)
	for _, video := range videos {
		playlist.AddVideo(video)
	}
	playlist.Title = extractPlaylistTitle(playlist.Videos)

	return playlist, nil
}

// extractPlaylistID extracts the playlist ID from a playlist URL
func extractPlaylistID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid playlist URL: %w", err)
	}
	playlistID := u.Query().Get(PlaylistQueryParam)
	if playlistID == "" {
		return "", fmt.Errorf("URL does not contain playlist parameter")
	}
	return playlistID, nil
}

// extractPlaylistTitle generates a title for the playlist based on videos
func extractPlaylistTitle(videos []*model.PlaylistVideo) string {
	if len(videos) == 0 {
		return DefaultPlaylistTitle
	}
	if len(videos) > 1 {
		commonPrefix := findCommonPrefix(videos[0].Title, videos[1].Title)
		if len(commonPrefix) > MinPrefixLength {
			return strings.TrimSpace(commonPrefix) + PlaylistSuffix
		}
	}

	firstTitle := []rune(videos[0].Title)
	if len(firstTitle) > MaxTitleLength {
		return string(firstTitle[:MaxTitleLength]) + TitleTruncateSuffix + PlaylistSuffix
	}
	return string(firstTitle) + PlaylistSuffix
}

// findCommonPrefix finds the common prefix between two strings without
// splitting a multi-byte character
func findCommonPrefix(s1, s2 string) string {
	r1, r2 := []rune(s1), []rune(s2)
	minLen := min(len(r1), len(r2))
	for i := 0; i < minLen; i++ {
		if r1[i] != r2[i] {
			return string(r1[:i])
		}
	}
	return string(r1[:minLen])
}
