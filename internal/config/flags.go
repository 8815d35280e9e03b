package config

import (
	"github.com/urfave/cli/v2"
)

// Flag names
const (
	KeyConfigFile        = "config"
	KeyBotToken          = "bot-token"
	KeyHostURL           = "host-url"
	KeyDownloadDir       = "download-dir"
	KeyStagingDir        = "staging-dir"
	KeyListenAddr        = "listen"
	KeyMaxParallel       = "max-parallel"
	KeyRetentionWindow   = "retention"
	KeyResolveTimeout    = "resolve-timeout"
	KeyFetchTimeout      = "fetch-timeout"
	KeyContainer         = "container"
	KeyCookiesFile       = "cookies"
	KeyUserAgent         = "user-agent"
	KeyLanguage          = "language"
	KeyMode              = "mode"
	KeyWebhookPath       = "webhook-path"
	KeySourceURLTemplate = "source-url-template"
	KeyInstallYTDLP      = "install-ytdlp"
	KeyPlaylistLimit     = "playlist-limit"
	KeyLogLevel          = "log-level"
	KeyLogFormat         = "log-format"
)

// Flags returns the command line flags; each can also come from the
// environment
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: KeyConfigFile, Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"LINKBOT_CONFIG"}},
		&cli.StringFlag{Name: KeyBotToken, Usage: "Telegram bot token", EnvVars: []string{"BOT_TOKEN", "TELEGRAM_BOT_TOKEN"}},
		&cli.StringFlag{Name: KeyHostURL, Usage: "public base URL of the artifact host", EnvVars: []string{"HOST_URL"}},
		&cli.StringFlag{Name: KeyDownloadDir, Usage: "directory served under /downloads/", Value: DefaultDownloadDir, EnvVars: []string{"DOWNLOAD_DIR"}},
		&cli.StringFlag{Name: KeyStagingDir, Usage: "private work directory for in-progress fetches", EnvVars: []string{"STAGING_DIR"}},
		&cli.StringFlag{Name: KeyListenAddr, Usage: "artifact host listen address", Value: DefaultListenAddr, EnvVars: []string{"LISTEN_ADDR"}},
		&cli.IntFlag{Name: KeyMaxParallel, Usage: "concurrent fetches (1-10)", Value: DefaultMaxParallel, EnvVars: []string{"MAX_PARALLEL"}},
		&cli.DurationFlag{Name: KeyRetentionWindow, Usage: "how long a published file stays available", Value: DefaultRetentionWindow, EnvVars: []string{"RETENTION_WINDOW"}},
		&cli.DurationFlag{Name: KeyResolveTimeout, Usage: "time limit for listing formats", Value: DefaultResolveTimeout, EnvVars: []string{"RESOLVE_TIMEOUT"}},
		&cli.DurationFlag{Name: KeyFetchTimeout, Usage: "time limit for one download+merge", Value: DefaultFetchTimeout, EnvVars: []string{"FETCH_TIMEOUT"}},
		&cli.StringFlag{Name: KeyContainer, Usage: "container offered and merged into", Value: DefaultContainer, EnvVars: []string{"MEDIA_CONTAINER"}},
		&cli.StringFlag{Name: KeyCookiesFile, Usage: "cookies.txt passed to yt-dlp", EnvVars: []string{"COOKIES_FILE"}},
		&cli.StringFlag{Name: KeyUserAgent, Usage: "User-Agent header for yt-dlp", EnvVars: []string{"USER_AGENT"}},
		&cli.StringFlag{Name: KeyLanguage, Usage: "bot language (en, ckb)", Value: DefaultLanguage, EnvVars: []string{"BOT_LANGUAGE"}},
		&cli.StringFlag{Name: KeyMode, Usage: "update delivery: polling or webhook", Value: string(DefaultMode), EnvVars: []string{"BOT_MODE"}},
		&cli.StringFlag{Name: KeyWebhookPath, Usage: "webhook route (derived from the token when empty)", EnvVars: []string{"WEBHOOK_PATH"}},
		&cli.StringFlag{Name: KeySourceURLTemplate, Usage: "URL template for a source item ID", Value: DefaultSourceURLTemplate, EnvVars: []string{"SOURCE_URL_TEMPLATE"}},
		&cli.BoolFlag{Name: KeyInstallYTDLP, Usage: "download a yt-dlp binary at startup", EnvVars: []string{"INSTALL_YTDLP"}},
		&cli.IntFlag{Name: KeyPlaylistLimit, Usage: "playlist videos offered per link", Value: DefaultPlaylistLimit, EnvVars: []string{"PLAYLIST_LIMIT"}},
		&cli.StringFlag{Name: KeyLogLevel, Usage: "debug, info, warn or error", Value: DefaultLogLevel, EnvVars: []string{"LOG_LEVEL"}},
		&cli.StringFlag{Name: KeyLogFormat, Usage: "text or json", Value: DefaultLogFormat, EnvVars: []string{"LOG_FORMAT"}},
	}
}

// FromContext builds settings with flag/env values over the YAML file (if
// any) over the defaults
func FromContext(c *cli.Context) (*Settings, error) {
	s := Default()
	if path := c.String(KeyConfigFile); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		s = loaded
	}
	s.ApplyFlags(c)
	s.Normalize()
	return s, nil
}

// ApplyFlags copies every explicitly set flag or env var into s
func (s *Settings) ApplyFlags(c *cli.Context) {
	stringFields := map[string]*string{
		KeyBotToken:          &s.BotToken,
		KeyHostURL:           &s.HostURL,
		KeyDownloadDir:       &s.DownloadDir,
		KeyStagingDir:        &s.StagingDir,
		KeyListenAddr:        &s.ListenAddr,
		KeyContainer:         &s.Container,
		KeyCookiesFile:       &s.CookiesFile,
		KeyUserAgent:         &s.UserAgent,
		KeyLanguage:          &s.Language,
		KeyWebhookPath:       &s.WebhookPath,
		KeySourceURLTemplate: &s.SourceURLTemplate,
		KeyLogLevel:          &s.LogLevel,
		KeyLogFormat:         &s.LogFormat,
	}
	for name, field := range stringFields {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}

	if c.IsSet(KeyMode) {
		s.Mode = Mode(c.String(KeyMode))
	}
	if c.IsSet(KeyMaxParallel) {
		s.SetMaxParallel(c.Int(KeyMaxParallel))
	}
	if c.IsSet(KeyPlaylistLimit) {
		s.PlaylistLimit = c.Int(KeyPlaylistLimit)
	}
	if c.IsSet(KeyRetentionWindow) {
		s.RetentionWindow = c.Duration(KeyRetentionWindow)
	}
	if c.IsSet(KeyResolveTimeout) {
		s.ResolveTimeout = c.Duration(KeyResolveTimeout)
	}
	if c.IsSet(KeyFetchTimeout) {
		s.FetchTimeout = c.Duration(KeyFetchTimeout)
	}
	if c.IsSet(KeyInstallYTDLP) {
		s.InstallYTDLP = c.Bool(KeyInstallYTDLP)
	}
}
