package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/downloaders"
)

type fakeDownloader struct {
	id       string
	req      internal.DownloadRequest
	consumer downloaders.LogConsumer
	lines    chan string
	ack      chan struct{}
	result   chan error
}

func (f *fakeDownloader) Start(ctx context.Context) error {
	for {
		select {
		case l := <-f.lines:
			f.consumer.ParseLogEntry(l, f)
			f.ack <- struct{}{}
		case err := <-f.result:
			return err
		case <-ctx.Done():
			return &downloaders.ExitError{Code: -1}
		}
	}
}

func (f *fakeDownloader) Stop() error    { return nil }
func (f *fakeDownloader) GetId() string  { return f.id }
func (f *fakeDownloader) GetUrl() string { return f.req.URL }

// emit blocks until the line has been consumed.
func (f *fakeDownloader) emit(line string) {
	f.lines <- line
	<-f.ack
}

type memoryStore struct {
	mu  sync.Mutex
	req *internal.DownloadRequest
}

func (m *memoryStore) Save(req internal.DownloadRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.req = &req
	return nil
}

func (m *memoryStore) Load() (*internal.DownloadRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.req, nil
}

func (m *memoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.req = nil
	return nil
}

type harness struct {
	c        *Controller
	store    *memoryStore
	bus      EventBus.Bus
	created  chan *fakeDownloader
	finished chan internal.ProcessSnapshot
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:    &memoryStore{},
		bus:      EventBus.New(),
		created:  make(chan *fakeDownloader, 8),
		finished: make(chan internal.ProcessSnapshot, 8),
	}

	var n int
	factory := func(req internal.DownloadRequest, consumer downloaders.LogConsumer) downloaders.Downloader {
		n++
		f := &fakeDownloader{
			id:       "run-" + string(rune('a'+n)),
			req:      req,
			consumer: consumer,
			lines:    make(chan string),
			ack:      make(chan struct{}),
			result:   make(chan error, 1),
		}
		h.created <- f
		return f
	}

	if err := h.bus.Subscribe(TopicFinished, func(s internal.ProcessSnapshot) {
		h.finished <- s
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	h.c = NewController(h.bus, h.store, factory)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		h.c.Shutdown(ctx)
	})

	return h
}

func (h *harness) nextRun(t *testing.T) *fakeDownloader {
	t.Helper()
	select {
	case f := <-h.created:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no downloader was created")
	}
	return nil
}

func (h *harness) waitFinished(t *testing.T) internal.ProcessSnapshot {
	t.Helper()
	select {
	case s := <-h.finished:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
	return internal.ProcessSnapshot{}
}

func (h *harness) start(t *testing.T) *fakeDownloader {
	t.Helper()
	_, err := h.c.Start(internal.DownloadRequest{
		URL:     " https://example.com/watch?v=1 ",
		Path:    t.TempDir(),
		Quality: internal.Quality720p,
	})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return h.nextRun(t)
}

func TestStartValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		req  internal.DownloadRequest
		err  error
	}{
		{"empty url", internal.DownloadRequest{URL: "   "}, ErrEmptyURL},
		{"missing dir", internal.DownloadRequest{URL: "u", Path: filepath.Join(t.TempDir(), "nope")}, ErrInvalidDirectory},
		{"file as dir", internal.DownloadRequest{URL: "u", Path: "controller_test.go"}, ErrInvalidDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.c.Start(tt.req); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestStartEmptyPathUsesWorkingDirectory(t *testing.T) {
	h := newHarness(t)

	if _, err := h.c.Start(internal.DownloadRequest{URL: "u"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	f := h.nextRun(t)
	if f.req.Path == "" {
		t.Error("expected the working directory to be filled in")
	}
	if f.req.Quality != internal.QualityBest {
		t.Errorf("expected default quality Best, got %q", f.req.Quality)
	}
}

func TestSingleActiveRun(t *testing.T) {
	h := newHarness(t)
	f := h.start(t)

	if _, err := h.c.Start(internal.DownloadRequest{URL: "other", Path: t.TempDir()}); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if f.req.URL != "https://example.com/watch?v=1" {
		t.Errorf("url was not trimmed: %q", f.req.URL)
	}
}

func TestProgressAndCompletion(t *testing.T) {
	h := newHarness(t)
	f := h.start(t)

	f.emit("[youtube] 1: Downloading webpage")
	if s := h.c.Snapshot(); s.Progress.Text != "[youtube] 1: Downloading webpage" || s.Progress.Percentage != 0 {
		t.Errorf("unexpected progress after info line: %+v", s.Progress)
	}

	f.emit("[download]  42.0% of 10.00MiB at 2.00MiB/s ETA 00:03")
	s := h.c.Snapshot()
	if s.Progress.Percentage != 42 {
		t.Errorf("expected 42%%, got %v", s.Progress.Percentage)
	}
	if s.Progress.Text != "Downloading: 42.0% | 2.00MiB/s | ETA 00:03" {
		t.Errorf("unexpected text %q", s.Progress.Text)
	}
	if s.Progress.Status != internal.StatusDownloading {
		t.Errorf("expected downloading, got %s", s.Progress.Status)
	}

	f.result <- nil
	done := h.waitFinished(t)

	if done.Progress.Status != internal.StatusCompleted || done.Progress.Percentage != 100 {
		t.Errorf("unexpected final progress %+v", done.Progress)
	}
	if done.Progress.Text != "Download finished." {
		t.Errorf("unexpected final text %q", done.Progress.Text)
	}
	if done.FinishedAt.IsZero() {
		t.Error("finished_at not set")
	}
}

func TestNonZeroExit(t *testing.T) {
	h := newHarness(t)
	f := h.start(t)

	f.result <- &downloaders.ExitError{Code: 2}
	done := h.waitFinished(t)

	if done.Progress.Status != internal.StatusFailed {
		t.Errorf("expected failed, got %s", done.Progress.Status)
	}
	if done.ExitCode != 2 {
		t.Errorf("expected exit code 2, got %d", done.ExitCode)
	}
	if done.Progress.Text != "yt-dlp finished with code 2." {
		t.Errorf("unexpected text %q", done.Progress.Text)
	}
}

func TestToolNotFound(t *testing.T) {
	h := newHarness(t)
	f := h.start(t)

	f.result <- downloaders.ErrToolNotFound
	done := h.waitFinished(t)

	if done.Progress.Status != internal.StatusFailed || done.Progress.Text != textNotFound {
		t.Errorf("unexpected progress %+v", done.Progress)
	}
	if done.Error == "" {
		t.Error("expected the error to be reported")
	}
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t)
	f := h.start(t)
	f.emit("[download]  10.0% of 10.00MiB at 2.00MiB/s ETA 00:05")

	if err := h.c.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	paused := h.waitFinished(t)

	if paused.Progress.Status != internal.StatusPaused || !paused.Paused {
		t.Errorf("expected paused, got %+v", paused)
	}
	if paused.Progress.Percentage != 10 {
		t.Errorf("pause must keep the progress, got %v", paused.Progress.Percentage)
	}
	if req, _ := h.store.Load(); req == nil || req.URL != f.req.URL {
		t.Errorf("paused request was not persisted: %+v", req)
	}

	if err := h.c.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}

	if _, err := h.c.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	resumed := h.nextRun(t)

	if resumed.req != f.req {
		t.Errorf("resume must reuse the inputs: %+v vs %+v", resumed.req, f.req)
	}
	if _, err := h.c.Resume(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	resumed.result <- nil
	if done := h.waitFinished(t); done.Progress.Status != internal.StatusCompleted {
		t.Errorf("expected completed, got %s", done.Progress.Status)
	}
	if req, _ := h.store.Load(); req != nil {
		t.Error("completed run must clear the persisted session")
	}
}

func TestResumeWithoutPause(t *testing.T) {
	h := newHarness(t)

	if _, err := h.c.Resume(); !errors.Is(err, ErrNothingToResume) {
		t.Errorf("expected ErrNothingToResume, got %v", err)
	}

	f := h.start(t)
	f.result <- nil
	h.waitFinished(t)

	if _, err := h.c.Resume(); !errors.Is(err, ErrNothingToResume) {
		t.Errorf("expected ErrNothingToResume after completion, got %v", err)
	}
}

func TestStop(t *testing.T) {
	h := newHarness(t)

	if err := h.c.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}

	f := h.start(t)
	f.emit("[download]  70.0% of 10.00MiB at 2.00MiB/s ETA 00:01")

	if err := h.c.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	done := h.waitFinished(t)

	if done.Progress.Status != internal.StatusStopped {
		t.Errorf("expected stopped, got %s", done.Progress.Status)
	}
	if done.Progress.Percentage != 0 {
		t.Errorf("stop resets progress, got %v", done.Progress.Percentage)
	}
	if done.Progress.Text != "Stopped by user." {
		t.Errorf("unexpected text %q", done.Progress.Text)
	}
	if _, err := h.c.Resume(); !errors.Is(err, ErrNothingToResume) {
		t.Errorf("a stopped run cannot be resumed, got %v", err)
	}
}

func TestRestoreFromStore(t *testing.T) {
	h := newHarness(t)
	h.store.Save(internal.DownloadRequest{URL: "https://example.com/x", Path: t.TempDir(), Quality: internal.QualityAudioOnly})

	if err := h.c.Restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if s := h.c.Snapshot(); s.Progress.Status != internal.StatusPaused {
		t.Errorf("expected paused after restore, got %s", s.Progress.Status)
	}

	if _, err := h.c.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	f := h.nextRun(t)
	if f.req.Quality != internal.QualityAudioOnly {
		t.Errorf("restored request lost its quality: %+v", f.req)
	}
}

func TestShutdownStopsActiveRun(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.c.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if s := h.c.Snapshot(); s.Progress.Status != internal.StatusStopped {
		t.Errorf("expected stopped after shutdown, got %s", s.Progress.Status)
	}
}

func TestStartAbandonsPausedSession(t *testing.T) {
	h := newHarness(t)
	f := h.start(t)

	if err := h.c.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	h.waitFinished(t)
	if req, _ := h.store.Load(); req == nil {
		t.Fatal("paused request was not persisted")
	}

	if _, err := h.c.Start(internal.DownloadRequest{URL: "other", Path: t.TempDir()}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	h.nextRun(t)

	if req, _ := h.store.Load(); req != nil {
		t.Errorf("the paused request of %q must be dropped, got %+v", f.req.URL, req)
	}
	if _, err := h.c.Resume(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStartFailure(t *testing.T) {
	h := newHarness(t)
	f := h.start(t)

	f.result <- &downloaders.StartError{Err: errors.New("exec format error")}
	done := h.waitFinished(t)

	if done.Progress.Status != internal.StatusFailed {
		t.Errorf("expected failed, got %s", done.Progress.Status)
	}
	if done.Progress.Text != "Failed to start yt-dlp: exec format error" {
		t.Errorf("unexpected text %q", done.Progress.Text)
	}
	if done.Error == "" {
		t.Error("expected the error to be reported")
	}
}

func TestShutdownRejectsNewRuns(t *testing.T) {
	h := newHarness(t)
	f := h.start(t)
	f.emit("[download]  10.0% of 10.00MiB at 2.00MiB/s ETA 00:05")

	if err := h.c.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	h.waitFinished(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.c.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if _, err := h.c.Start(internal.DownloadRequest{URL: "u", Path: t.TempDir()}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Start, got %v", err)
	}
	if _, err := h.c.Resume(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Resume, got %v", err)
	}

	select {
	case <-h.created:
		t.Error("no downloader may be created after shutdown")
	default:
	}

	if s := h.c.Snapshot(); s.Progress.Status != internal.StatusPaused {
		t.Errorf("shutdown must leave a paused download paused, got %s", s.Progress.Status)
	}
	if req, _ := h.store.Load(); req == nil {
		t.Error("the paused request must stay persisted across shutdown")
	}
}
