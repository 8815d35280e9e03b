package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/yt-linkbot/internal/model"
)

// Timeout constants
const (
	DefaultInspectTimeout = 60 * time.Second
)

// yt-dlp templates
const (
	// OutputTemplate names fetched files after the source title and height
	OutputTemplate = "%(title)s - %(height)sp.%(ext)s"

	// FetchFormatTemplate pairs the chosen video format with the best audio
	FetchFormatTemplate = "%s+bestaudio/best"

	// finalPathPrint makes yt-dlp report the merged file once it is in place
	finalPathPrint = "after_move:%(.{title,filepath})j"

	DefaultContainer = "mp4"
	noCodec          = "none"
	headerUserAgent  = "User-Agent:"
)

// ResolverOptions configures the yt-dlp invocation
type ResolverOptions struct {
	CookiesFile string
	UserAgent   string
	Timeout     time.Duration
}

// YTDLPResolver inspects and fetches media through yt-dlp
type YTDLPResolver struct {
	cookiesFile string
	userAgent   string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewYTDLPResolver creates a new resolver
func NewYTDLPResolver(opts ResolverOptions, logger *slog.Logger) *YTDLPResolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultInspectTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YTDLPResolver{
		cookiesFile: opts.CookiesFile,
		userAgent:   opts.UserAgent,
		timeout:     opts.Timeout,
		logger:      logger.With("component", "resolver"),
	}
}

// SetTimeout sets the timeout for metadata inspection
func (y *YTDLPResolver) SetTimeout(timeout time.Duration) {
	y.timeout = timeout
}

// InstallYTDLP makes sure a yt-dlp binary is available, downloading one into
// the user cache if none is found
func InstallYTDLP(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

// command returns a yt-dlp command with the options shared by every call
func (y *YTDLPResolver) command() *ytdlp.Command {
	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings()
	if y.cookiesFile != "" {
		dl = dl.Cookies(y.cookiesFile)
	}
	if y.userAgent != "" {
		dl = dl.AddHeaders(headerUserAgent + y.userAgent)
	}
	return dl
}

// Inspect lists the formats of url without downloading it
func (y *YTDLPResolver) Inspect(ctx context.Context, url string) (*model.MediaInfo, error) {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := y.command().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp inspect %s: %w", url, err)
	}

	info, err := parseInfoJSON([]byte(result.Stdout))
	if err != nil {
		return nil, err
	}

	y.logger.Debug("inspected", "url", url, "id", info.ID, "formats", len(info.Formats), "took", time.Since(start))
	return info, nil
}

// Fetch downloads req.FormatID plus the best audio, merged into
// req.Container, into req.OutputDir. The file's mtime is the download time,
// which retention sweeps rely on.
func (y *YTDLPResolver) Fetch(ctx context.Context, req model.FetchRequest) (*model.FetchResult, error) {
	container := req.Container
	if container == "" {
		container = DefaultContainer
	}

	result, err := y.command().
		Format(fmt.Sprintf(FetchFormatTemplate, req.FormatID)).
		MergeOutputFormat(container).
		Output(filepath.Join(req.OutputDir, OutputTemplate)).
		ForceOverwrites().
		NoMtime().
		Print(finalPathPrint).
		Run(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp fetch %s (format %s): %w", req.URL, req.FormatID, err)
	}

	return parseFetchOutput(result.Stdout), nil
}

// infoJSON is the subset of yt-dlp's info dict the catalog needs
type infoJSON struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	WebpageURL string       `json:"webpage_url"`
	Formats    []formatJSON `json:"formats"`
}

type formatJSON struct {
	FormatID string   `json:"format_id"`
	Ext      string   `json:"ext"`
	Height   *float64 `json:"height"`
	Filesize *float64 `json:"filesize"`
	VCodec   *string  `json:"vcodec"`
	ACodec   *string  `json:"acodec"`
}

// videoOnly reports a format carrying video and no audio track. A missing
// vcodec counts as video, a missing acodec does not count as silent.
func (f formatJSON) videoOnly() bool {
	hasVideo := f.VCodec == nil || *f.VCodec != noCodec
	noAudio := f.ACodec != nil && *f.ACodec == noCodec
	return hasVideo && noAudio
}

// parseInfoJSON converts a --dump-single-json document into MediaInfo
func parseInfoJSON(data []byte) (*model.MediaInfo, error) {
	var raw infoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("yt-dlp output has no id")
	}

	info := &model.MediaInfo{
		ID:         raw.ID,
		Title:      raw.Title,
		WebpageURL: raw.WebpageURL,
		Formats:    make([]model.MediaFormat, 0, len(raw.Formats)),
	}
	for _, f := range raw.Formats {
		mf := model.MediaFormat{
			FormatID:     f.FormatID,
			VideoOnly:    f.videoOnly(),
			ContainerExt: f.Ext,
		}
		if f.Height != nil {
			mf.Height = int(*f.Height)
		}
		if f.Filesize != nil {
			mf.SizeBytes = int64(*f.Filesize)
		}
		info.Formats = append(info.Formats, mf)
	}
	return info, nil
}

// fetchJSON is what finalPathPrint emits
type fetchJSON struct {
	Title    string `json:"title"`
	Filepath string `json:"filepath"`
}

// parseFetchOutput reads the last JSON line printed after the move step. An
// empty OutputPath means yt-dlp exited cleanly without producing a file.
func parseFetchOutput(stdout string) *model.FetchResult {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var out fetchJSON
		if err := json.Unmarshal([]byte(line), &out); err != nil {
			continue
		}
		if out.Filepath == "" {
			continue
		}
		return &model.FetchResult{OutputPath: out.Filepath, FinalTitle: out.Title}
	}
	return &model.FetchResult{}
}
