package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"archiver/internal/logger"
	"archiver/internal/media"
)

// Engine downloads a URL with no site-specific knowledge.
type Engine interface {
	Download(ctx context.Context, url string) (*media.Metadata, error)
}

var ErrBinaryNotFound = errors.New("yt-dlp not found in PATH")

// YtDlp runs the yt-dlp binary with an explicit argument slice and reads the
// info JSON it prints after downloading.
type YtDlp struct {
	Path string
	Dir  string

	log logger.Logger
}

func NewYtDlp(path, dir string) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	return &YtDlp{Path: path, Dir: dir, log: logger.Get("yt-dlp")}
}

type infoJSON struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	Uploader           string  `json:"uploader"`
	Timestamp          float64 `json:"timestamp"`
	Duration           float64 `json:"duration"`
	Extractor          string  `json:"extractor"`
	Filename           string  `json:"_filename"`
	RequestedDownloads []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
}

// Download fetches url into y.Dir.
func (y *YtDlp) Download(ctx context.Context, url string) (*media.Metadata, error) {
	binPath, err := exec.LookPath(y.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBinaryNotFound, err)
	}

	if err := os.MkdirAll(y.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	args := []string{
		"--no-simulate",
		"--dump-single-json",
		"--no-progress",
		"--no-playlist",
		"-o", filepath.Join(y.Dir, "%(extractor)s_%(id)s.%(ext)s"),
		"--", url,
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	y.log.Emit(logger.DEBUG, "running %s for %s", binPath, url)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("yt-dlp failed: %w", err)
		}
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, lastLine(msg))
	}

	return ParseInfo(url, stdout.Bytes())
}

// ParseInfo converts yt-dlp's single JSON document into Metadata.
func ParseInfo(url string, data []byte) (*media.Metadata, error) {
	var info infoJSON
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing yt-dlp output: %w", err)
	}

	md := media.NewMetadata(url)
	md.Status = "yt-dlp: success"
	if info.Title != "" {
		md.Set(media.KeyTitle, info.Title)
	}
	if info.Uploader != "" {
		md.Set(media.KeyAuthor, info.Uploader)
	}
	if info.Timestamp > 0 {
		md.Set(media.KeyTimestamp, time.Unix(int64(info.Timestamp), 0).UTC())
	}

	var files []string
	for _, d := range info.RequestedDownloads {
		if d.Filepath != "" {
			files = append(files, d.Filepath)
		}
	}
	if len(files) == 0 && info.Filename != "" {
		files = append(files, info.Filename)
	}

	for _, f := range files {
		m := media.NewMedia(f)
		if info.Duration > 0 {
			m.Set(media.KeyDuration, info.Duration)
		}
		md.AddMedia(m)
	}

	if !md.MarkSuccess() {
		return md, fmt.Errorf("yt-dlp reported no downloaded files for %s", url)
	}
	return md, nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}
