package downloaders

import (
	"log/slog"
	"strings"
)

type LogConsumer interface {
	GetName() string
	ParseLogEntry(entry string, d Downloader)
}

// ProgressLogConsumer parses every line of yt-dlp output and hands the
// result to a callback.
type ProgressLogConsumer struct {
	onProgress func(d Downloader, p ProgressLine)
}

func NewProgressLogConsumer(onProgress func(d Downloader, p ProgressLine)) LogConsumer {
	return &ProgressLogConsumer{onProgress: onProgress}
}

func (c *ProgressLogConsumer) GetName() string { return "progress-log-consumer" }

func (c *ProgressLogConsumer) ParseLogEntry(entry string, d Downloader) {
	slog.Debug("yt-dlp output",
		slog.String("id", GetShortId(d.GetId())),
		slog.String("line", entry),
	)

	p := ParseProgressLine(entry)

	if p.HasPercent() {
		slog.Info("progress",
			slog.String("id", GetShortId(d.GetId())),
			slog.String("url", d.GetUrl()),
			slog.Float64("percentage", p.Percent),
		)
	}

	if c.onProgress != nil {
		c.onProgress(d, p)
	}
}

func GetShortId(id string) string {
	return strings.Split(id, "-")[0]
}
