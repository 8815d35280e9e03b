package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ytget/yt-linkbot/internal/catalog"
	"github.com/ytget/yt-linkbot/internal/config"
	"github.com/ytget/yt-linkbot/internal/download"
	"github.com/ytget/yt-linkbot/internal/flow"
	"github.com/ytget/yt-linkbot/internal/i18n"
	"github.com/ytget/yt-linkbot/internal/platform"
	"github.com/ytget/yt-linkbot/internal/retention"
	"github.com/ytget/yt-linkbot/internal/server"
	"github.com/ytget/yt-linkbot/internal/telegram"
)

func runAction(c *cli.Context) error {
	s, err := config.FromContext(c)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	logger := newLogger(s)
	logger.Info("starting", "version", version, "mode", s.Mode, "download_dir", s.DownloadDir, "max_parallel", s.MaxParallel, "retention", s.RetentionWindow)

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := prepareDirectories(s); err != nil {
		return err
	}

	if s.InstallYTDLP {
		logger.Info("installing yt-dlp")
		if err := platform.InstallYTDLP(ctx); err != nil {
			return err
		}
	}
	if ffmpeg, err := platform.CheckFFmpeg(ctx); err != nil {
		logger.Warn("ffmpeg not available, merges will fail", "error", err)
	} else {
		logger.Info("ffmpeg found", "version", ffmpeg)
	}

	resolver := platform.NewYTDLPResolver(platform.ResolverOptions{
		CookiesFile: s.CookiesFile,
		UserAgent:   s.UserAgent,
		Timeout:     s.ResolveTimeout,
	}, logger)
	renditions := catalog.New(resolver, s.Container, logger)

	retentionMgr := retention.NewManager(s.RetentionWindow, logger)
	defer retentionMgr.Close()
	removed, scheduled, err := retentionMgr.Sweep(s.DownloadDir)
	if err != nil {
		logger.Warn("startup sweep failed", "dir", s.DownloadDir, "error", err)
	} else {
		logger.Info("startup sweep", "removed", removed, "rescheduled", scheduled)
	}

	fetches := download.NewService(resolver, retentionMgr, download.Config{
		DownloadDir:  s.DownloadDir,
		StagingDir:   s.StagingDir,
		HostBaseURL:  s.HostURL,
		Container:    s.Container,
		MaxParallel:  s.MaxParallel,
		FetchTimeout: s.FetchTimeout,
	}, logger)
	defer fetches.Close()

	bot, err := telegram.New(s.BotToken, logger)
	if err != nil {
		return err
	}

	texts := i18n.NewLocalization()
	texts.SetLanguage(s.Language)

	controller := flow.NewController(bot, renditions, fetches, texts, flow.Config{
		ResolveTimeout:    s.ResolveTimeout,
		RetentionWindow:   s.RetentionWindow,
		Container:         s.Container,
		SourceURLTemplate: s.SourceURLTemplate,
		PlaylistLimit:     s.PlaylistLimit,
	}, logger)
	playlists := platform.NewPlaylistParserService(s.PlaylistLimit)
	playlists.SetTimeout(s.ResolveTimeout)
	controller.SetPlaylistExpander(playlists)

	host := server.New(s.DownloadDir, logger)
	host.SetHealth(func() map[string]any {
		stats := retentionMgr.Stats()
		return map[string]any{
			"version":           version,
			"active_jobs":       fetches.ActiveCount(),
			"sessions":          controller.SessionCount(),
			"artifacts_pending": stats.Scheduled,
			"artifacts_deleted": stats.Deleted,
		}
	})

	receive := bot.Poll
	if s.Mode == config.ModeWebhook {
		host.HandleWebhook(s.WebhookRoute(), bot.WebhookHandler())
		if err := bot.SetWebhook(s.WebhookURL()); err != nil {
			return err
		}
		logger.Info("webhook registered", "route", s.WebhookRoute())
		receive = bot.Listen
	} else if err := bot.DeleteWebhook(); err != nil {
		// getUpdates is refused while a webhook is set
		logger.Warn("could not clear webhook", "error", err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := host.Run(ctx, s.ListenAddr); err != nil {
			errCh <- fmt.Errorf("artifact host: %w", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := receive(ctx, controller); err != nil {
			errCh <- fmt.Errorf("updates: %w", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()
	close(errCh)

	// in-flight fetches are aborted by fetches.Close and pending deletions
	// are picked up by the next startup sweep
	logger.Info("stopped", "active_jobs", fetches.ActiveCount())
	return <-errCh
}

// prepareDirectories creates the served and staging directories and clears
// the job work dirs a previous process left in staging
func prepareDirectories(s *config.Settings) error {
	if err := platform.CreateDirectoryIfNotExists(s.DownloadDir); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	if err := platform.CreateDirectoryIfNotExists(s.StagingDir); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if _, err := download.ClearStaging(s.StagingDir); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}
	return nil
}

// compile-time checks of the wiring above
var (
	_ flow.Gateway          = (*telegram.Bot)(nil)
	_ flow.Resolver         = (*catalog.Catalog)(nil)
	_ flow.Submitter        = (*download.Service)(nil)
	_ flow.PlaylistExpander = (*platform.PlaylistParserService)(nil)
	_ download.Fetcher      = (*platform.YTDLPResolver)(nil)
	_ download.Publisher    = (*retention.Manager)(nil)
	_ catalog.Inspector     = (*platform.YTDLPResolver)(nil)
	_ telegram.Handler      = (*flow.Controller)(nil)
)
