package kv

import (
	"time"

	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
)

// struct representing the persisted state of the session controller
type Session struct {
	Request  internal.DownloadRequest `json:"request"`
	PausedAt time.Time                `json:"paused_at"`
}
