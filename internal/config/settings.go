package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects how updates reach the bot
type Mode string

const (
	ModePolling Mode = "polling"
	ModeWebhook Mode = "webhook"
)

// Default values
const (
	DefaultDownloadDir       = "downloads"
	DefaultListenAddr        = ":5000"
	DefaultMaxParallel       = 2
	DefaultRetentionWindow   = 30 * time.Minute
	DefaultResolveTimeout    = 60 * time.Second
	DefaultFetchTimeout      = 30 * time.Minute
	DefaultContainer         = "mp4"
	DefaultLanguage          = "en"
	DefaultMode              = ModePolling
	DefaultSourceURLTemplate = "https://www.youtube.com/watch?v=%s"
	DefaultPlaylistLimit     = 20
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"

	// hidden, so never served
	stagingDirName = ".staging"
	webhookPrefix  = "/webhook/"

	minParallel = 1
	maxParallel = 10
)

var (
	// ErrMissingToken means no bot token was configured
	ErrMissingToken = errors.New("bot token is required (BOT_TOKEN)")

	// ErrMissingHostURL means no public base URL was configured
	ErrMissingHostURL = errors.New("host url is required (HOST_URL)")

	// ErrStagingOverlap means the staging dir is the download dir or one of
	// its parents
	ErrStagingOverlap = errors.New("staging dir must not be or contain the download dir")
)

// Settings is the complete runtime configuration
type Settings struct {
	BotToken          string        `yaml:"bot_token"`
	HostURL           string        `yaml:"host_url"`
	DownloadDir       string        `yaml:"download_dir"`
	StagingDir        string        `yaml:"staging_dir"`
	ListenAddr        string        `yaml:"listen_addr"`
	MaxParallel       int           `yaml:"max_parallel"`
	RetentionWindow   time.Duration `yaml:"retention_window"`
	ResolveTimeout    time.Duration `yaml:"resolve_timeout"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	Container         string        `yaml:"container"`
	CookiesFile       string        `yaml:"cookies_file"`
	UserAgent         string        `yaml:"user_agent"`
	Language          string        `yaml:"language"`
	Mode              Mode          `yaml:"mode"`
	WebhookPath       string        `yaml:"webhook_path"`
	SourceURLTemplate string        `yaml:"source_url_template"`
	InstallYTDLP      bool          `yaml:"install_ytdlp"`
	PlaylistLimit     int           `yaml:"playlist_limit"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
}

// Default returns settings with every default applied
func Default() *Settings {
	return &Settings{
		DownloadDir:       DefaultDownloadDir,
		ListenAddr:        DefaultListenAddr,
		MaxParallel:       DefaultMaxParallel,
		RetentionWindow:   DefaultRetentionWindow,
		ResolveTimeout:    DefaultResolveTimeout,
		FetchTimeout:      DefaultFetchTimeout,
		Container:         DefaultContainer,
		Language:          DefaultLanguage,
		Mode:              DefaultMode,
		SourceURLTemplate: DefaultSourceURLTemplate,
		PlaylistLimit:     DefaultPlaylistLimit,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
	}
}

// LoadFile overlays a YAML file onto the defaults. Keys missing from the
// file keep their default. Call Normalize once all sources are applied.
func LoadFile(path string) (*Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return s, nil
}

// SetMaxParallel sets the fetch concurrency, clamped to 1..10
func (s *Settings) SetMaxParallel(count int) {
	if count < minParallel {
		count = minParallel
	}
	if count > maxParallel {
		count = maxParallel
	}
	s.MaxParallel = count
}

// Normalize fills derived values and repairs out-of-range ones
func (s *Settings) Normalize() {
	s.HostURL = strings.TrimRight(strings.TrimSpace(s.HostURL), "/")
	if s.DownloadDir == "" {
		s.DownloadDir = DefaultDownloadDir
	}
	if s.StagingDir == "" {
		s.StagingDir = filepath.Join(s.DownloadDir, stagingDirName)
	}
	s.SetMaxParallel(s.MaxParallel)
	if s.RetentionWindow <= 0 {
		s.RetentionWindow = DefaultRetentionWindow
	}
	if s.ResolveTimeout <= 0 {
		s.ResolveTimeout = DefaultResolveTimeout
	}
	if s.FetchTimeout <= 0 {
		s.FetchTimeout = DefaultFetchTimeout
	}
	if s.Container == "" {
		s.Container = DefaultContainer
	}
	if s.Mode == "" {
		s.Mode = DefaultMode
	}
	if s.SourceURLTemplate == "" {
		s.SourceURLTemplate = DefaultSourceURLTemplate
	}
	if s.PlaylistLimit <= 0 {
		s.PlaylistLimit = DefaultPlaylistLimit
	}
	if s.WebhookPath != "" && !strings.HasPrefix(s.WebhookPath, "/") {
		s.WebhookPath = "/" + s.WebhookPath
	}
}

// Validate checks the settings needed to run the bot
func (s *Settings) Validate() error {
	if s.BotToken == "" {
		return ErrMissingToken
	}
	if err := s.ValidateHost(); err != nil {
		return err
	}
	switch s.Mode {
	case ModePolling, ModeWebhook:
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", s.Mode, ModePolling, ModeWebhook)
	}
	if strings.Count(s.SourceURLTemplate, "%s") != 1 {
		return fmt.Errorf("source url template %q must contain exactly one %%s", s.SourceURLTemplate)
	}
	return s.validateStaging()
}

// validateStaging rejects a staging dir whose reset would reach published
// artifacts
func (s *Settings) validateStaging() error {
	staging, err := filepath.Abs(s.StagingDir)
	if err != nil {
		return fmt.Errorf("staging dir %q: %w", s.StagingDir, err)
	}
	downloads, err := filepath.Abs(s.DownloadDir)
	if err != nil {
		return fmt.Errorf("download dir %q: %w", s.DownloadDir, err)
	}
	rel, err := filepath.Rel(staging, downloads)
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return fmt.Errorf("%w: staging %s, downloads %s", ErrStagingOverlap, staging, downloads)
	}
	return nil
}

// ValidateHost checks the public base URL links are built from
func (s *Settings) ValidateHost() error {
	if s.HostURL == "" {
		return ErrMissingHostURL
	}
	u, err := url.Parse(s.HostURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("host url %q must be an absolute http(s) url", s.HostURL)
	}
	return nil
}

// WebhookRoute returns the path the webhook is served on. Without an
// explicit path one is derived from the token so it is not guessable.
func (s *Settings) WebhookRoute() string {
	if s.WebhookPath != "" {
		return s.WebhookPath
	}
	sum := sha256.Sum256([]byte(s.BotToken))
	return webhookPrefix + hex.EncodeToString(sum[:])[:32]
}

// WebhookURL returns the address Telegram posts updates to
func (s *Settings) WebhookURL() string {
	return s.HostURL + s.WebhookRoute()
}

// SlogLevel maps LogLevel onto a slog level
func (s *Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
