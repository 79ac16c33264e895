package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/yt-dlp-remote/server/archiver"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/session"
)

type fakeController struct {
	started  []internal.DownloadRequest
	startErr error
	pauseErr error
	snap     internal.ProcessSnapshot
}

func (f *fakeController) Start(req internal.DownloadRequest) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, req)
	return "run-1", nil
}

func (f *fakeController) Pause() error                       { return f.pauseErr }
func (f *fakeController) Resume() (string, error)            { return "", session.ErrNothingToResume }
func (f *fakeController) Stop() error                        { return session.ErrNotRunning }
func (f *fakeController) Snapshot() internal.ProcessSnapshot { return f.snap }

type fakeHistory struct {
	limit int
}

func (f *fakeHistory) List(ctx context.Context, limit int) ([]archiver.Entity, error) {
	f.limit = limit
	return []archiver.Entity{{Id: "a", Status: internal.StatusCompleted}}, nil
}

func newTestRouter(ctrl *fakeController, hist History) http.Handler {
	h := NewHandler(NewService(&ContainerArgs{
		Controller: ctrl,
		History:    hist,
		Fetch: func(ctx context.Context, url string) (*internal.DownloadMetadata, error) {
			return &internal.DownloadMetadata{Title: "title of " + url}, nil
		},
		Version: func(ctx context.Context) (string, error) { return "2024.08.06", nil },
		Update:  func(ctx context.Context) error { return errors.New("no network") },
	}))

	r := chi.NewRouter()
	Routes(r, h)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestExec(t *testing.T) {
	ctrl := &fakeController{}
	r := newTestRouter(ctrl, nil)

	rec := do(t, r, http.MethodPost, "/download", `{"url":"https://example.com/v","path":"/tmp","quality":"720"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res idResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Id != "run-1" {
		t.Errorf("expected id run-1, got %q", res.Id)
	}
	if len(ctrl.started) != 1 || ctrl.started[0].Quality != internal.Quality720p {
		t.Errorf("unexpected request forwarded: %+v", ctrl.started)
	}
}

func TestExecFillsPathFromConfig(t *testing.T) {
	ctrl := &fakeController{}
	r := newTestRouter(ctrl, nil)

	rec := do(t, r, http.MethodPost, "/download", `{"url":"u"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ctrl.started[0].Path == "" {
		t.Error("expected the configured download path to be used")
	}
}

func TestExecErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"malformed body", `{`, nil, http.StatusBadRequest},
		{"busy", `{"url":"u"}`, session.ErrBusy, http.StatusConflict},
		{"empty url", `{"url":""}`, session.ErrEmptyURL, http.StatusBadRequest},
		{"bad folder", `{"url":"u","path":"/nope"}`, session.ErrInvalidDirectory, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeController{startErr: tt.err}, nil)

			rec := do(t, r, http.MethodPost, "/download", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestLifecycleConflicts(t *testing.T) {
	r := newTestRouter(&fakeController{pauseErr: session.ErrNotRunning}, nil)

	for _, path := range []string{"/pause", "/resume", "/stop"} {
		rec := do(t, r, http.MethodPost, path, "")
		if rec.Code != http.StatusConflict {
			t.Errorf("%s: expected 409, got %d", path, rec.Code)
		}
	}
}

func TestStatus(t *testing.T) {
	ctrl := &fakeController{snap: internal.ProcessSnapshot{
		Id:       "run-1",
		Progress: internal.DownloadProgress{Status: internal.StatusDownloading, Percentage: 42.5},
	}}
	r := newTestRouter(ctrl, nil)

	rec := do(t, r, http.MethodGet, "/status", "")

	var snap internal.ProcessSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Progress.Percentage != 42.5 || snap.Progress.Status != internal.StatusDownloading {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{}
	r := newTestRouter(&fakeController{}, hist)

	rec := do(t, r, http.MethodGet, "/history?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if hist.limit != 5 {
		t.Errorf("expected limit 5, got %d", hist.limit)
	}

	if rec := do(t, r, http.MethodGet, "/history?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad limit, got %d", rec.Code)
	}

	noHistory := newTestRouter(&fakeController{}, nil)
	if rec := do(t, noHistory, http.MethodGet, "/history", ""); rec.Code != http.StatusNotImplemented {
		t.Errorf("expected 501 without an archive, got %d", rec.Code)
	}
}

func TestVersionAndInfo(t *testing.T) {
	r := newTestRouter(&fakeController{}, nil)

	rec := do(t, r, http.MethodGet, "/version", "")
	var v versionResponse
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.RPCVersion != CURRENT_RPC_VERSION || v.YtdlpVersion != "2024.08.06" {
		t.Errorf("unexpected version %+v", v)
	}

	rec = do(t, r, http.MethodGet, "/info?url=x", "")
	var meta internal.DownloadMetadata
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatal(err)
	}
	if meta.Title != "title of x" {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestUpdateFailure(t *testing.T) {
	r := newTestRouter(&fakeController{}, nil)

	if rec := do(t, r, http.MethodPost, "/update", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
