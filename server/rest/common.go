package rest

import (
	"context"

	"github.com/marcopiovanello/yt-dlp-remote/server/archiver"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/metadata"
	"github.com/marcopiovanello/yt-dlp-remote/server/updater"
)

// Controller is the subset of session.Controller driven over HTTP.
type Controller interface {
	Start(req internal.DownloadRequest) (string, error)
	Pause() error
	Resume() (string, error)
	Stop() error
	Snapshot() internal.ProcessSnapshot
}

type History interface {
	List(ctx context.Context, limit int) ([]archiver.Entity, error)
}

type (
	MetadataFetcher func(ctx context.Context, url string) (*internal.DownloadMetadata, error)
	VersionFetcher  func(ctx context.Context) (string, error)
	Updater         func(ctx context.Context) error
)

type ContainerArgs struct {
	Controller Controller
	History    History

	// zero values fall back to the yt-dlp backed implementations
	Fetch   MetadataFetcher
	Version VersionFetcher
	Update  Updater
}

func (a *ContainerArgs) withDefaults() *ContainerArgs {
	out := *a
	if out.Fetch == nil {
		out.Fetch = metadata.DefaultFetcher
	}
	if out.Version == nil {
		out.Version = metadata.Version
	}
	if out.Update == nil {
		out.Update = updater.UpdateExecutable
	}
	return &out
}
