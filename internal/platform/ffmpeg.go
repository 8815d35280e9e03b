package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// FFmpeg executable constants
const (
	FFmpegCommand     = "ffmpeg"
	FFmpegVersionFlag = "-version"
)

// CheckFFmpeg runs `ffmpeg -version` and returns the first line of its
// output. yt-dlp needs ffmpeg to merge a video-only rendition with audio.
func CheckFFmpeg(ctx context.Context) (string, error) {
	return probeVersion(ctx, FFmpegCommand)
}

func probeVersion(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, command, FFmpegVersionFlag)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", command, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", fmt.Errorf("%s printed no version", command)
}
