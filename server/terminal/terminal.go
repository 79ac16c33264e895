// Package terminal drives the session controller from a shell, with a
// progress bar and single-key controls.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/session"
)

const (
	pollInterval = 500 * time.Millisecond
	helpText     = "[p] pause  [r] resume  [s] stop  [q] quit"
)

var ErrDownloadFailed = errors.New("download failed")

type Controller interface {
	Start(req internal.DownloadRequest) (string, error)
	Pause() error
	Resume() (string, error)
	Stop() error
	Snapshot() internal.ProcessSnapshot
}

type Options struct {
	Output io.Writer
	// Commands is nil when running without a TTY.
	Commands <-chan Command
	// Resume continues the paused download instead of starting req.
	Resume bool
}

type Terminal struct {
	ctrl Controller
	bus  EventBus.Bus
	opts Options
	wake chan struct{}
	rdr  renderer
}

func New(ctrl Controller, bus EventBus.Bus, opts Options) *Terminal {
	t := &Terminal{
		ctrl: ctrl,
		bus:  bus,
		opts: opts,
		wake: make(chan struct{}, 1),
	}

	if opts.Commands != nil {
		t.rdr = newBarRenderer(opts.Output)
	} else {
		t.rdr = &lineRenderer{out: opts.Output}
	}

	return t
}

// notify only signals, the loop reads the authoritative state from the
// controller. It must not block the publisher.
func (t *Terminal) notify(internal.ProcessSnapshot) {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Terminal) subscribe() func() {
	topics := []string{session.TopicProgress, session.TopicState, session.TopicFinished}
	for _, topic := range topics {
		t.bus.Subscribe(topic, t.notify)
	}
	return func() {
		for _, topic := range topics {
			t.bus.Unsubscribe(topic, t.notify)
		}
	}
}

// Run starts (or resumes) the download and blocks until it is finished, or
// until the user quits. The last snapshot is returned; a failed download
// yields ErrDownloadFailed.
func (t *Terminal) Run(ctx context.Context, req internal.DownloadRequest) (internal.ProcessSnapshot, error) {
	defer t.subscribe()()

	var err error
	if t.opts.Resume {
		_, err = t.ctrl.Resume()
	} else {
		_, err = t.ctrl.Start(req)
	}
	if err != nil {
		return t.ctrl.Snapshot(), err
	}

	if t.opts.Commands != nil {
		fmt.Fprintln(t.opts.Output, helpText)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var (
		commands = t.opts.Commands
		done     = ctx.Done()
		quitting bool
	)

	for {
		select {
		case <-done:
			done = nil
			quitting = true
			t.stopIfActive()
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				break
			}
			if quit := t.handle(cmd); quit {
				quitting = true
			}
		case <-t.wake:
		case <-ticker.C:
		}

		snap := t.ctrl.Snapshot()
		t.rdr.Render(snap)

		status := snap.Progress.Status
		// a paused download outlives the process and can be resumed later
		if status.IsFinished() || (quitting && status == internal.StatusPaused) {
			t.rdr.Close(snap)
			if status == internal.StatusFailed {
				return snap, ErrDownloadFailed
			}
			return snap, nil
		}
	}
}

func (t *Terminal) handle(cmd Command) (quit bool) {
	var err error

	switch cmd {
	case CommandPause:
		err = t.ctrl.Pause()
	case CommandResume:
		_, err = t.ctrl.Resume()
	case CommandStop:
		err = t.ctrl.Stop()
	case CommandQuit:
		t.stopIfActive()
		return true
	}

	if err != nil {
		slog.Debug("command rejected", slog.Any("err", err))
	}
	return false
}

func (t *Terminal) stopIfActive() {
	if err := t.ctrl.Stop(); err != nil && !errors.Is(err, session.ErrNotRunning) {
		slog.Warn("failed to stop download", slog.Any("err", err))
	}
}
