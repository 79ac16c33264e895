package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// RotableLogger is an append-only log file that can be moved aside.
type RotableLogger struct {
	path string

	mu sync.Mutex
	fd *os.File
}

func NewRotableLogger(path string) (*RotableLogger, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &RotableLogger{path: path, fd: fd}, nil
}

func (r *RotableLogger) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fd.Write(p)
}

// Rotate renames the current file to <path>.<timestamp> and reopens path.
func (r *RotableLogger) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fd.Close(); err != nil {
		return err
	}

	rotated := fmt.Sprintf("%s.%s", r.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(r.path, rotated); err != nil && !os.IsNotExist(err) {
		return err
	}

	fd, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	r.fd = fd

	return nil
}

func (r *RotableLogger) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fd.Close()
}

// ParseLevel maps the configured level name, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
