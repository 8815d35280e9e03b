package model

// PlaylistVideo represents a single video in a playlist
type PlaylistVideo struct {
	ID    string
	Title string
}

// Playlist represents a playlist link expanded into its videos
type Playlist struct {
	ID     string
	Title  string
	Videos []*PlaylistVideo
}

// NewPlaylist creates an empty playlist
func NewPlaylist(id string) *Playlist {
	return &Playlist{
		ID:     id,
		Videos: make([]*PlaylistVideo, 0),
	}
}

// AddVideo adds a video to the playlist
func (p *Playlist) AddVideo(video *PlaylistVideo) {
	p.Videos = append(p.Videos, video)
}

// Head returns at most limit videos from the start of the playlist.
// A non-positive limit returns every video.
func (p *Playlist) Head(limit int) []*PlaylistVideo {
	if limit <= 0 || limit >= len(p.Videos) {
		return p.Videos
	}
	return p.Videos[:limit]
}
