package rest

import (
	"context"
	"errors"
	"strings"

	"github.com/marcopiovanello/yt-dlp-remote/server/archiver"
	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
)

// version of the HTTP api
const CURRENT_RPC_VERSION = "1.0.0"

var ErrNoHistory = errors.New("history is not available")

type Service struct {
	ctrl    Controller
	history History
	fetch   MetadataFetcher
	version VersionFetcher
	update  Updater
}

func NewService(args *ContainerArgs) *Service {
	args = args.withDefaults()

	return &Service{
		ctrl:    args.Controller,
		history: args.History,
		fetch:   args.Fetch,
		version: args.Version,
		update:  args.Update,
	}
}

// Exec starts a download. Missing fields are taken from the configuration.
func (s *Service) Exec(req internal.DownloadRequest) (string, error) {
	conf := config.Instance()

	if strings.TrimSpace(req.Path) == "" {
		req.Path = conf.Paths.DownloadPath
	}
	if req.Quality == "" {
		req.Quality = internal.ParseQuality(conf.Downloader.DefaultQuality)
	}

	return s.ctrl.Start(req)
}

func (s *Service) Pause() error { return s.ctrl.Pause() }

func (s *Service) Resume() (string, error) { return s.ctrl.Resume() }

func (s *Service) Stop() error { return s.ctrl.Stop() }

func (s *Service) Status() internal.ProcessSnapshot { return s.ctrl.Snapshot() }

func (s *Service) History(ctx context.Context, limit int) ([]archiver.Entity, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	return s.history.List(ctx, limit)
}

func (s *Service) Info(ctx context.Context, url string) (*internal.DownloadMetadata, error) {
	return s.fetch(ctx, url)
}

func (s *Service) GetVersion(ctx context.Context) (string, string, error) {
	v, err := s.version(ctx)
	return CURRENT_RPC_VERSION, v, err
}

func (s *Service) UpdateExecutable(ctx context.Context) error {
	return s.update(ctx)
}
