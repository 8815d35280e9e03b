package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ytget/yt-linkbot/internal/config"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppName  = "yt-linkbot"
	AppUsage = "Telegram bot that turns video links into temporary download links"
)

func main() {
	app := &cli.App{
		Name:    AppName,
		Usage:   AppUsage,
		Version: version,
		Flags:   config.Flags(),
		Action:  runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "start the bot and the artifact host (default)",
				Action: runAction,
			},
			{
				Name:   "sweep",
				Usage:  "delete expired files from the download directory and exit",
				Action: sweepAction,
			},
			{
				Name:      "formats",
				Usage:     "list the renditions the bot would offer for a URL",
				ArgsUsage: "<url>",
				Action:    formatsAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal", "error", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from settings and makes it the default
func newLogger(s *config.Settings) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.SlogLevel()}

	var handler slog.Handler
	if s.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("app", AppName)
	slog.SetDefault(logger)
	return logger
}
