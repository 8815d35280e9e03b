package model

import "fmt"

// bytesPerMB is the divisor used for size labels shown to users
const bytesPerMB = 1024 * 1024

// SourceItem identifies a remote media resource as reported by the resolver
type SourceItem struct {
	ID           string
	Title        string
	CanonicalURL string
}

// Rendition is one selectable quality/size option of a SourceItem
type Rendition struct {
	FormatID        string
	Height          int
	ApproxSizeBytes int64
	ContainerExt    string
}

// SizeMB returns the approximate size in mebibytes
func (r Rendition) SizeMB() float64 {
	return float64(r.ApproxSizeBytes) / bytesPerMB
}

// Label renders the rendition the way it is shown on a choice button,
// e.g. "1080p - 45.3 MB"
func (r Rendition) Label() string {
	return fmt.Sprintf("%dp - %.1f MB", r.Height, r.SizeMB())
}

// SelectionToken is the opaque string attached to a presented choice
type SelectionToken string

// Choice is one presented option: the label a user sees and the data the
// gateway hands back when it is pressed
type Choice struct {
	Label string
	Data  string
}

// MediaFormat is a single format entry reported by the resolver
type MediaFormat struct {
	FormatID     string
	Height       int
	SizeBytes    int64
	VideoOnly    bool
	ContainerExt string
}

// MediaInfo is the metadata-only result of inspecting a URL
type MediaInfo struct {
	ID         string
	Title      string
	WebpageURL string
	Formats    []MediaFormat
}

// FetchRequest describes one download+merge for the resolver
type FetchRequest struct {
	URL       string
	FormatID  string
	OutputDir string
	Container string
}

// FetchResult is what the resolver produced for a FetchRequest
type FetchResult struct {
	OutputPath string
	FinalTitle string
}
