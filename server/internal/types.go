package internal

import "time"

// Status of the single download managed by the session controller.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusPausing     Status = "pausing"
	StatusPaused      Status = "paused"
	StatusStopping    Status = "stopping"
	StatusStopped     Status = "stopped"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

func (s Status) String() string { return string(s) }

// IsActive reports whether a child process is (or is about to be) alive.
func (s Status) IsActive() bool {
	switch s {
	case StatusStarting, StatusDownloading, StatusPausing, StatusStopping:
		return true
	}
	return false
}

// IsFinished reports whether the last run reached a terminal state.
// Paused is not finished: it can still be resumed.
func (s Status) IsFinished() bool {
	switch s {
	case StatusStopped, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Used to unmarshall the download request
type DownloadRequest struct {
	URL     string  `json:"url"`
	Path    string  `json:"path"`
	Quality Quality `json:"quality"`
}

type DownloadProgress struct {
	Status     Status  `json:"status"`
	Percentage float64 `json:"percentage"`
	Speed      string  `json:"speed"`
	ETA        string  `json:"eta"`
	Text       string  `json:"text"`
}

// struct representing the current state of the controller, exposed to front-ends
type ProcessSnapshot struct {
	Id         string           `json:"id"`
	Request    DownloadRequest  `json:"request"`
	Progress   DownloadProgress `json:"progress"`
	Paused     bool             `json:"paused"`
	ExitCode   int              `json:"exit_code"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Subset of the `yt-dlp -J` output used by the info probe
type DownloadMetadata struct {
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
	Extractor  string  `json:"extractor"`
	Thumbnail  string  `json:"thumbnail"`
}
