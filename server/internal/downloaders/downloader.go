package downloaders

import (
	"context"
	"errors"
	"fmt"
)

type Downloader interface {
	// Start spawns the external tool and blocks until it exits.
	// Cancelling ctx tears the process group down.
	Start(ctx context.Context) error
	// Stop sends SIGTERM to the process group and escalates to SIGKILL
	// after the grace period.
	Stop() error

	GetId() string
	GetUrl() string
}

const remediation = "install yt-dlp (e.g. `pip install yt-dlp`) and make sure it is in PATH, or set paths.downloader_path"

var (
	ErrToolNotFound = errors.New("yt-dlp executable not found: " + remediation)
	ErrNotStarted   = errors.New("process has not been started")
	ErrStartFailed  = errors.New("failed to start yt-dlp")
)

// StartError is returned by Start when the tool exists but could not be
// spawned (permissions, bad interpreter, pipe creation).
type StartError struct {
	Err error
}

func (e *StartError) Error() string { return ErrStartFailed.Error() + ": " + e.Err.Error() }

func (e *StartError) Unwrap() error { return e.Err }

func (e *StartError) Is(target error) bool { return target == ErrStartFailed }

// ExitError is returned by Start when the tool exits with a non-zero code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("yt-dlp exited with code %d", e.Code)
}

// ExitCode extracts the tool exit code from an error returned by Start.
// 0 means success, -1 means the code is unknown (start failure, signal).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return -1
}
