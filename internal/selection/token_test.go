package selection

import (
	"errors"
	"strings"
	"testing"

	"github.com/ytget/yt-linkbot/internal/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		formatID string
		sourceID string
	}{
		{"numeric format", "137", "dQw4w9WgXcQ"},
		{"dashed format", "hls-1080p", "abc_DEF-123"},
		{"dotted ids", "dash.video.720", "x.y.z"},
		{"unicode source", "22", "видео"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Encode(tt.formatID, tt.sourceID)
			if err != nil {
				t.Fatalf("Encode returned error: %v", err)
			}

			formatID, sourceID, err := Decode(token)
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			if formatID != tt.formatID || sourceID != tt.sourceID {
				t.Errorf("round trip = (%q, %q), expected (%q, %q)", formatID, sourceID, tt.formatID, tt.sourceID)
			}
		})
	}
}

func TestEncodeWireFormat(t *testing.T) {
	token, err := Encode("137", "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if token != model.SelectionToken("quality:137:dQw4w9WgXcQ") {
		t.Errorf("unexpected token %q", token)
	}
}

func TestEncodeDistinctPairsDoNotCollide(t *testing.T) {
	pairs := [][2]string{
		{"137", "abc"},
		{"136", "abc"},
		{"137", "abd"},
		{"13", "7abc"},
	}

	seen := make(map[model.SelectionToken][2]string)
	for _, p := range pairs {
		token, err := Encode(p[0], p[1])
		if err != nil {
			t.Fatalf("Encode(%q, %q) returned error: %v", p[0], p[1], err)
		}
		if prev, ok := seen[token]; ok {
			t.Errorf("token %q produced by both %v and %v", token, prev, p)
		}
		seen[token] = p
	}
}

func TestEncodeRejects(t *testing.T) {
	tests := []struct {
		name     string
		formatID string
		sourceID string
	}{
		{"empty format", "", "abc"},
		{"empty source", "137", ""},
		{"delimiter in format", "13:7", "abc"},
		{"delimiter in source", "137", "a:bc"},
		{"too long", "137", strings.Repeat("x", MaxTokenBytes)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.formatID, tt.sourceID)
			if !errors.Is(err, ErrUnencodable) {
				t.Errorf("expected ErrUnencodable, got %v", err)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []string{
		"",
		"quality",
		"quality:137",
		"quality:137:abc:extra",
		"video:137:abc",
		":137:abc",
		"quality::abc",
		"quality:137:",
		"Quality:137:abc",
	}

	for _, data := range tests {
		t.Run(data, func(t *testing.T) {
			_, _, err := Decode(model.SelectionToken(data))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode(%q) expected ErrMalformed, got %v", data, err)
			}
		})
	}
}

func TestIsSelection(t *testing.T) {
	tests := []struct {
		data     string
		expected bool
	}{
		{"quality:137:abc", true},
		{"quality:", true},
		{"video:abc", false},
		{"quality", false},
		{"", false},
	}

	for _, test := range tests {
		if got := IsSelection(test.data); got != test.expected {
			t.Errorf("IsSelection(%q) = %v, expected %v", test.data, got, test.expected)
		}
	}
}
