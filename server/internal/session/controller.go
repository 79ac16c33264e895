// Package session owns the single download the program manages at a time.
//
// Pause and stop are both implemented by killing the external tool. Resume
// starts it again with the same inputs and relies on yt-dlp's own
// partial-file handling (--no-overwrites, .part files) to pick up where it
// left off. This is an approximation, not a resumable transfer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/downloaders"
)

// Bus topics. Every handler receives an internal.ProcessSnapshot.
const (
	TopicProgress = "download:progress"
	TopicState    = "download:state"
	TopicFinished = "download:finished"
)

const (
	textQueued   = "Queued. Starting..."
	textPausing  = "Pausing..."
	textPaused   = "Paused. Partial file kept. Resume to continue."
	textResuming = "Resuming download..."
	textStopping = "Stopping download..."
	textStopped  = "Stopped by user."
	textFinished = "Download finished."
	textNotFound = "yt-dlp not found. Install yt-dlp and ensure it's in PATH."
)

var (
	ErrEmptyURL         = errors.New("please enter a video URL")
	ErrInvalidDirectory = errors.New("please choose a valid folder to save downloads")
	ErrBusy             = errors.New("a download is already running, stop it first to start a new one")
	ErrNotRunning       = errors.New("no active download")
	ErrAlreadyRunning   = errors.New("download already running")
	ErrNothingToResume  = errors.New("nothing to resume")
	ErrClosed           = errors.New("shutting down, no new downloads are accepted")
)

// Store persists the paused request so it survives a restart.
type Store interface {
	Save(req internal.DownloadRequest) error
	Load() (*internal.DownloadRequest, error)
	Clear() error
}

// Factory builds the downloader for one run.
type Factory func(req internal.DownloadRequest, consumer downloaders.LogConsumer) downloaders.Downloader

func DefaultFactory(req internal.DownloadRequest, consumer downloaders.LogConsumer) downloaders.Downloader {
	return downloaders.NewGenericDownload(req, consumer)
}

type Controller struct {
	mu sync.Mutex

	// at most one child process is considered active: current != nil
	current downloaders.Downloader
	cancel  context.CancelFunc
	paused  bool
	stopped bool
	closed  bool

	request    internal.DownloadRequest
	progress   internal.DownloadProgress
	id         string
	exitCode   int
	errText    string
	startedAt  time.Time
	finishedAt time.Time

	wg sync.WaitGroup

	bus     EventBus.Bus
	store   Store
	factory Factory
}

func NewController(bus EventBus.Bus, store Store, factory Factory) *Controller {
	if factory == nil {
		factory = DefaultFactory
	}

	return &Controller{
		bus:      bus,
		store:    store,
		factory:  factory,
		progress: internal.DownloadProgress{Status: internal.StatusIdle, Text: "Idle"},
	}
}

// Restore loads a request paused by a previous process, making Resume
// available right away.
func (c *Controller) Restore() error {
	if c.store == nil {
		return nil
	}

	req, err := c.store.Load()
	if err != nil {
		return err
	}
	if req == nil {
		return nil
	}

	c.mu.Lock()
	c.request = *req
	c.paused = true
	c.progress = internal.DownloadProgress{Status: internal.StatusPaused, Text: textPaused}
	c.mu.Unlock()

	slog.Info("restored paused download", slog.String("url", req.URL))
	return nil
}

// Start launches a new run for req and returns its id.
func (c *Controller) Start(req internal.DownloadRequest) (string, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return "", ErrEmptyURL
	}

	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Join(ErrInvalidDirectory, err)
		}
		req.Path = wd
	}

	if info, err := os.Stat(req.Path); err != nil || !info.IsDir() {
		return "", ErrInvalidDirectory
	}

	if req.Quality == "" {
		req.Quality = internal.QualityBest
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.current != nil {
		c.mu.Unlock()
		return "", ErrBusy
	}

	// a new download abandons the paused one
	if c.paused {
		c.persist(false, req)
	}

	c.paused = false
	c.stopped = false
	c.request = req
	c.progress = internal.DownloadProgress{Status: internal.StatusStarting, Text: textQueued}

	id := c.launchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(TopicState, snap)
	return id, nil
}

// Pause kills the running tool but keeps its partial files.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}

	c.paused = true
	c.progress.Status = internal.StatusPausing
	c.progress.Text = textPausing

	cancel := c.cancel
	snap := c.snapshotLocked()
	c.mu.Unlock()

	cancel()
	c.publish(TopicState, snap)
	return nil
}

// Resume restarts a paused download with the same inputs.
func (c *Controller) Resume() (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.current != nil {
		c.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	if !c.paused {
		c.mu.Unlock()
		return "", ErrNothingToResume
	}

	c.paused = false
	c.stopped = false
	c.progress.Status = internal.StatusStarting
	c.progress.Text = textResuming

	id := c.launchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(TopicState, snap)
	return id, nil
}

// Stop kills the running tool for good.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}

	c.stopped = true
	c.progress.Status = internal.StatusStopping
	c.progress.Text = textStopping

	cancel := c.cancel
	snap := c.snapshotLocked()
	c.mu.Unlock()

	cancel()
	c.publish(TopicState, snap)
	return nil
}

// Shutdown stops the active run, if any, and waits for the worker to exit.
// Start and Resume fail with ErrClosed from then on. A paused download is
// left paused.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	// no launch can happen past this point, so wg.Add never races wg.Wait
	if err := c.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until no run is active.
func (c *Controller) Wait() { c.wg.Wait() }

func (c *Controller) Snapshot() internal.ProcessSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) launchLocked() string {
	ctx, cancel := context.WithCancel(context.Background())

	d := c.factory(c.request, downloaders.NewProgressLogConsumer(c.onLine))

	c.current = d
	c.cancel = cancel
	c.id = d.GetId()
	c.exitCode = 0
	c.errText = ""
	c.startedAt = time.Now()
	c.finishedAt = time.Time{}

	c.wg.Add(1)
	go c.worker(ctx, d)

	return c.id
}

func (c *Controller) worker(ctx context.Context, d downloaders.Downloader) {
	defer c.wg.Done()

	err := d.Start(ctx)
	c.finish(d, err)
}

// onLine runs on the worker goroutine for every line of tool output.
func (c *Controller) onLine(d downloaders.Downloader, p downloaders.ProgressLine) {
	c.mu.Lock()
	// flags are checked once per line, a pending pause/stop owns the status
	if c.current != d || c.paused || c.stopped {
		c.mu.Unlock()
		return
	}

	c.progress.Status = internal.StatusDownloading
	if p.HasPercent() {
		c.progress.Percentage = p.Percent
		c.progress.Speed = p.Speed
		c.progress.ETA = p.ETA
	}
	c.progress.Text = downloaders.StatusText(p)

	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(TopicProgress, snap)
}

func (c *Controller) finish(d downloaders.Downloader, err error) {
	c.mu.Lock()
	if c.current != d {
		c.mu.Unlock()
		return
	}

	c.cancel()
	c.current = nil
	c.cancel = nil
	c.finishedAt = time.Now()
	c.exitCode = downloaders.ExitCode(err)
	c.progress.Speed = ""
	c.progress.ETA = ""

	var startErr *downloaders.StartError

	switch {
	case c.stopped:
		c.progress.Status = internal.StatusStopped
		c.progress.Percentage = 0
		c.progress.Text = textStopped
	case c.paused:
		c.progress.Status = internal.StatusPaused
		c.progress.Text = textPaused
	case err == nil:
		c.progress.Status = internal.StatusCompleted
		c.progress.Percentage = 100
		c.progress.Text = textFinished
	case errors.Is(err, downloaders.ErrToolNotFound):
		c.progress.Status = internal.StatusFailed
		c.progress.Text = textNotFound
		c.errText = err.Error()
	case errors.As(err, &startErr):
		c.progress.Status = internal.StatusFailed
		c.progress.Text = fmt.Sprintf("Failed to start yt-dlp: %v", startErr.Err)
		c.errText = err.Error()
	case c.exitCode > 0:
		c.progress.Status = internal.StatusFailed
		c.progress.Text = fmt.Sprintf("yt-dlp finished with code %d.", c.exitCode)
		c.errText = err.Error()
	default:
		c.progress.Status = internal.StatusFailed
		c.progress.Text = fmt.Sprintf("Error during download: %v", err)
		c.errText = err.Error()
	}

	paused := c.paused
	req := c.request
	snap := c.snapshotLocked()
	c.mu.Unlock()

	slog.Info("download finished",
		slog.String("id", downloaders.GetShortId(snap.Id)),
		slog.String("url", req.URL),
		slog.String("status", snap.Progress.Status.String()),
		slog.Int("exit_code", snap.ExitCode),
	)

	c.persist(paused, req)

	c.publish(TopicState, snap)
	c.publish(TopicFinished, snap)
}

func (c *Controller) persist(paused bool, req internal.DownloadRequest) {
	if c.store == nil {
		return
	}

	var err error
	if paused {
		err = c.store.Save(req)
	} else {
		err = c.store.Clear()
	}

	if err != nil {
		slog.Error("failed to persist session", slog.Any("err", err))
	}
}

func (c *Controller) snapshotLocked() internal.ProcessSnapshot {
	return internal.ProcessSnapshot{
		Id:         c.id,
		Request:    c.request,
		Progress:   c.progress,
		Paused:     c.paused,
		ExitCode:   c.exitCode,
		Error:      c.errText,
		StartedAt:  c.startedAt,
		FinishedAt: c.finishedAt,
	}
}

func (c *Controller) publish(topic string, snap internal.ProcessSnapshot) {
	if c.bus != nil {
		c.bus.Publish(topic, snap)
	}
}
