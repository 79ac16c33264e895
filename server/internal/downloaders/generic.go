package downloaders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
)

type GenericDownloader struct {
	Id      string
	Request internal.DownloadRequest

	// Executable is resolved through PATH when it has no separator.
	Executable string
	KillGrace  time.Duration

	logConsumer LogConsumer

	mu       sync.Mutex
	proc     *os.Process
	exited   chan struct{}
	stopping bool
}

func NewGenericDownload(req internal.DownloadRequest, consumer LogConsumer) *GenericDownloader {
	conf := config.Instance()

	return &GenericDownloader{
		Id:          uuid.NewString(),
		Request:     req,
		Executable:  conf.Paths.DownloaderPath,
		KillGrace:   conf.Downloader.KillGrace,
		logConsumer: consumer,
		exited:      make(chan struct{}),
	}
}

func (g *GenericDownloader) Start(ctx context.Context) error {
	params := buildParams(g.Request)

	path, err := exec.LookPath(g.Executable)
	if err != nil {
		return errors.Join(ErrToolNotFound, err)
	}

	slog.Info("requesting download",
		slog.String("id", GetShortId(g.Id)),
		slog.String("url", g.Request.URL),
		slog.String("cmd", shellescape.QuoteCommand(append([]string{path}, params...))),
	)

	cmd := exec.Command(path, params...)
	cmd.SysProcAttr = sysProcAttr()

	// stdout and stderr share one pipe so lines keep their relative order
	pr, pw, err := os.Pipe()
	if err != nil {
		return &StartError{Err: fmt.Errorf("failed to create output pipe: %w", err)}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return errors.Join(ErrToolNotFound, err)
		}
		return &StartError{Err: err}
	}
	// the child holds its own copy, ours must go for EOF to be delivered
	pw.Close()

	g.mu.Lock()
	g.proc = cmd.Process
	g.mu.Unlock()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			if err := g.Stop(); err != nil {
				slog.Warn("failed to stop yt-dlp", slog.String("id", GetShortId(g.Id)), slog.Any("err", err))
			}
		case <-done:
		}
	}()

	readErr := produceLogs(pr, func(line string) {
		if g.isStopping() || g.logConsumer == nil {
			return
		}
		g.logConsumer.ParseLogEntry(line, g)
	})
	pr.Close()

	if readErr != nil {
		slog.Error("failed reading yt-dlp output", slog.String("id", GetShortId(g.Id)), slog.Any("err", readErr))
		if err := g.Stop(); err != nil {
			slog.Warn("failed to stop yt-dlp", slog.String("id", GetShortId(g.Id)), slog.Any("err", err))
		}
	}

	waitErr := cmd.Wait()
	close(g.exited)

	if readErr != nil {
		return fmt.Errorf("error during download: %w", readErr)
	}

	var ee *exec.ExitError
	if errors.As(waitErr, &ee) {
		return &ExitError{Code: ee.ExitCode()}
	}

	return waitErr
}

func (g *GenericDownloader) Stop() error {
	g.mu.Lock()
	proc := g.proc
	g.stopping = true
	g.mu.Unlock()

	if proc == nil {
		return ErrNotStarted
	}

	// yt-dlp may spawn children (ffmpeg, external downloaders) living in the
	// same process group, the whole group is signalled
	if err := terminate(proc); err != nil {
		return err
	}

	select {
	case <-g.exited:
		return nil
	case <-time.After(g.KillGrace):
	}

	return kill(proc)
}

func (g *GenericDownloader) isStopping() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopping
}

func (g *GenericDownloader) GetId() string  { return g.Id }
func (g *GenericDownloader) GetUrl() string { return g.Request.URL }
