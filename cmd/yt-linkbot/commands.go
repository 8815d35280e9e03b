package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/ytget/yt-linkbot/internal/catalog"
	"github.com/ytget/yt-linkbot/internal/config"
	"github.com/ytget/yt-linkbot/internal/platform"
	"github.com/ytget/yt-linkbot/internal/retention"
)

// sweepAction deletes files older than the retention window and exits
func sweepAction(c *cli.Context) error {
	s, err := config.FromContext(c)
	if err != nil {
		return err
	}
	logger := newLogger(s)

	mgr := retention.NewManager(s.RetentionWindow, logger)
	// younger files are only counted; the running bot owns their timers
	defer mgr.Close()

	removed, young, err := mgr.Sweep(s.DownloadDir)
	if err != nil {
		return fmt.Errorf("sweep %s: %w", s.DownloadDir, err)
	}

	fmt.Printf("Removed %d expired file(s) from %s, %d still within %s\n", removed, s.DownloadDir, young, s.RetentionWindow)
	return nil
}

// formatsAction prints the renditions offered for a URL
func formatsAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: yt-linkbot formats <url>", 2)
	}
	s, err := config.FromContext(c)
	if err != nil {
		return err
	}
	logger := newLogger(s)

	resolver := platform.NewYTDLPResolver(platform.ResolverOptions{
		CookiesFile: s.CookiesFile,
		UserAgent:   s.UserAgent,
		Timeout:     s.ResolveTimeout,
	}, logger)

	result, err := catalog.New(resolver, s.Container, logger).Resolve(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	printCatalog(os.Stdout, result)
	return nil
}

func printCatalog(w io.Writer, result *catalog.Result) {
	fmt.Fprintf(w, "%s (%s)\n", result.Source.Title, result.Source.CanonicalURL)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "%-8s %-10s %-12s %s\n", "Format", "Height", "Size", "Button")
	for i, r := range result.Renditions {
		fmt.Fprintf(w, "%-8s %-10s %-12s %s\n",
			r.FormatID,
			fmt.Sprintf("%dp", r.Height),
			humanize.IBytes(uint64(r.ApproxSizeBytes)),
			result.Choices[i].Label,
		)
	}
	fmt.Fprintf(w, "\nTotal: %d rendition(s)\n", len(result.Renditions))
}
