// Package download fetches single remote assets to local files. Output paths
// are validated against directory traversal and files are written through a
// temp file + rename so a failed transfer never leaves a truncated asset.
package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"archiver/internal/httputil"
)

// MaxAssetSize caps a single asset.
const MaxAssetSize = 2 << 30

var extensionsByType = map[string]string{
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"image/heic":      ".heic",
	"audio/mpeg":      ".mp3",
	"audio/mp4":       ".m4a",
}

// Fetch downloads rawURL into dir as name plus an extension derived from the
// response Content-Type (falling back to the URL path) and returns the
// absolute path of the written file.
func Fetch(ctx context.Context, client *http.Client, rawURL, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	resp, err := httputil.Get(ctx, client, rawURL, "")
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	ext := Extension(resp.Header.Get("Content-Type"), rawURL)
	outputPath, err := httputil.SafeDownloadPath(dir, name+ext)
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*.part")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, io.LimitReader(resp.Body, MaxAssetSize)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", outputPath, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming download: %w", err)
	}

	return outputPath, nil
}

// Extension picks a file extension for a response. Unknown content yields ".bin".
func Extension(contentType, rawURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := extensionsByType[strings.ToLower(mediaType)]; ok {
			return ext
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if len(ext) > 1 && len(ext) <= 5 && !strings.ContainsAny(ext, `/\`) {
			return ext
		}
	}

	return ".bin"
}
