package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
)

const (
	fetchTimeout   = 60 * time.Second
	versionTimeout = 10 * time.Second
)

var ErrEmptyURL = errors.New("empty url")

// DefaultFetcher probes url with `yt-dlp -J`. Nothing is downloaded.
func DefaultFetcher(ctx context.Context, url string) (*internal.DownloadMetadata, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, config.Instance().Paths.DownloaderPath, "--no-warnings", "-J", url)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Info("retrieving metadata", slog.String("url", url))

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("yt-dlp executable not found: %w", err)
		}
		return nil, errors.Join(err, errors.New(strings.TrimSpace(stderr.String())))
	}

	var meta internal.DownloadMetadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	return &meta, nil
}

// Version returns the output of `yt-dlp --version`.
func Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, config.Instance().Paths.DownloaderPath, "--version").Output()
	if ctx.Err() != nil {
		return "", errors.New("requesting yt-dlp version took too long")
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}
