package platform

import (
	"testing"
	"time"
)

func TestNewYTDLPResolver(t *testing.T) {
	tests := []struct {
		name            string
		opts            ResolverOptions
		expectedTimeout time.Duration
	}{
		{
			name:            "should use default timeout",
			opts:            ResolverOptions{},
			expectedTimeout: DefaultInspectTimeout,
		},
		{
			name:            "should keep custom timeout",
			opts:            ResolverOptions{Timeout: 15 * time.Second, CookiesFile: "/tmp/cookies.txt"},
			expectedTimeout: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewYTDLPResolver(tt.opts, nil)

			if resolver == nil {
				t.Fatal("resolver should not be nil")
			}
			if resolver.timeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, resolver.timeout)
			}
			if resolver.cookiesFile != tt.opts.CookiesFile {
				t.Errorf("expected cookies file %q, got %q", tt.opts.CookiesFile, resolver.cookiesFile)
			}
		})
	}
}

func TestResolverSetTimeout(t *testing.T) {
	resolver := NewYTDLPResolver(ResolverOptions{}, nil)
	resolver.SetTimeout(5 * time.Second)

	if resolver.timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", resolver.timeout)
	}
}

const sampleInfo = `{
  "id": "dQw4w9WgXcQ",
  "title": "Sample Video",
  "webpage_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
  "formats": [
    {"format_id": "sb0", "ext": "mhtml", "vcodec": "none", "acodec": "none"},
    {"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "filesize": 3433514},
    {"format_id": "18", "ext": "mp4", "height": 360, "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "filesize": 8000000},
    {"format_id": "137", "ext": "mp4", "height": 1080, "vcodec": "avc1.640028", "acodec": "none", "filesize": 80000000},
    {"format_id": "248", "ext": "webm", "height": 1080, "vcodec": "vp9", "acodec": "none", "filesize": null},
    {"format_id": "hls-720", "ext": "mp4", "height": 720.0, "acodec": "none"}
  ]
}`

func TestParseInfoJSON(t *testing.T) {
	info, err := parseInfoJSON([]byte(sampleInfo))
	if err != nil {
		t.Fatalf("parseInfoJSON returned error: %v", err)
	}

	if info.ID != "dQw4w9WgXcQ" || info.Title != "Sample Video" {
		t.Errorf("unexpected info header %+v", info)
	}
	if info.WebpageURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("unexpected webpage url %s", info.WebpageURL)
	}
	if len(info.Formats) != 6 {
		t.Fatalf("expected 6 formats, got %d", len(info.Formats))
	}

	tests := []struct {
		index     int
		formatID  string
		height    int
		size      int64
		videoOnly bool
		ext       string
	}{
		{0, "sb0", 0, 0, false, "mhtml"},
		{1, "140", 0, 3433514, false, "m4a"},
		{2, "18", 360, 8000000, false, "mp4"},
		{3, "137", 1080, 80000000, true, "mp4"},
		{4, "248", 1080, 0, true, "webm"},
		{5, "hls-720", 720, 0, true, "mp4"},
	}

	for _, tt := range tests {
		f := info.Formats[tt.index]
		if f.FormatID != tt.formatID || f.Height != tt.height || f.SizeBytes != tt.size || f.VideoOnly != tt.videoOnly || f.ContainerExt != tt.ext {
			t.Errorf("format %d = %+v, expected id=%s height=%d size=%d videoOnly=%v ext=%s",
				tt.index, f, tt.formatID, tt.height, tt.size, tt.videoOnly, tt.ext)
		}
	}
}

func TestParseInfoJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "ERROR: Video unavailable"},
		{"missing id", `{"title": "x", "formats": []}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseInfoJSON([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseFetchOutput(t *testing.T) {
	tests := []struct {
		name      string
		stdout    string
		wantPath  string
		wantTitle string
	}{
		{
			name:      "single line",
			stdout:    `{"title": "Sample Video", "filepath": "/tmp/stage/Sample Video - 1080p.mp4"}`,
			wantPath:  "/tmp/stage/Sample Video - 1080p.mp4",
			wantTitle: "Sample Video",
		},
		{
			name:      "noise before result",
			stdout:    "[download] 100%\n{\"title\": \"A\", \"filepath\": \"/x/A - 720p.mp4\"}\n",
			wantPath:  "/x/A - 720p.mp4",
			wantTitle: "A",
		},
		{
			name:   "nothing printed",
			stdout: "",
		},
		{
			name:   "json without path",
			stdout: `{"title": "A"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseFetchOutput(tt.stdout)
			if result.OutputPath != tt.wantPath || result.FinalTitle != tt.wantTitle {
				t.Errorf("parseFetchOutput = %+v, expected path=%q title=%q", result, tt.wantPath, tt.wantTitle)
			}
		})
	}
}
