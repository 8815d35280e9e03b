package platform

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// File permissions
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// DownloadsPath is the route prefix the artifact host serves files under
const DownloadsPath = "/downloads/"

// hidden, so the artifact host never serves a copy in progress
const movingFilePattern = ".moving-*"

// File extensions never served or published (yt-dlp work files)
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp"}
)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// PublicURL builds the address of a published file on the artifact host
func PublicURL(hostBaseURL, name string) string {
	return strings.TrimRight(hostBaseURL, "/") + DownloadsPath + url.PathEscape(name)
}

// IsServableName reports whether name is a plain file name that may be
// exposed by the artifact host: no separators, no traversal, not hidden and
// not a partial download
func IsServableName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(name, ext) {
			return false
		}
	}
	return true
}

// MoveFile moves src into dstDir keeping its base name and returns the new
// path. An existing file with the same name is replaced. Falls back to
// copy+remove when src and dstDir are on different filesystems.
func MoveFile(src, dstDir string) (string, error) {
	dst := filepath.Join(dstDir, filepath.Base(src))

	err := os.Rename(src, dst)
	if err == nil {
		return dst, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("failed to move %s: %w", src, err)
	}

	if err := copyIntoPlace(src, dst); err != nil {
		return "", err
	}
	// dst is already published; a leftover src is cleaned with its staging dir
	os.Remove(src)
	return dst, nil
}

// copyIntoPlace copies src to a hidden temp file next to dst and renames it
// over dst, so dst is never seen half written
func copyIntoPlace(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), movingFilePattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", dst, err)
	}
	tmp := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Chmod(DefaultFilePermissions); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to chmod %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish %s: %w", dst, err)
	}
	return nil
}
