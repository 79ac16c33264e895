package internal

import (
	"encoding/json"
	"strings"
)

// Quality is the user facing resolution/format choice.
type Quality string

const (
	QualityBest      Quality = "Best"
	Quality1080p     Quality = "1080p"
	Quality720p      Quality = "720p"
	QualityAudioOnly Quality = "Audio only"
)

// Qualities lists every choice in display order.
var Qualities = []Quality{QualityBest, Quality1080p, Quality720p, QualityAudioOnly}

// ParseQuality maps free user input to a Quality. Unknown input is Best.
func ParseQuality(s string) Quality {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1080p", "1080":
		return Quality1080p
	case "720p", "720":
		return Quality720p
	case "audio", "audio only", "audio-only", "audioonly":
		return QualityAudioOnly
	default:
		return QualityBest
	}
}

// FormatSelector returns the yt-dlp -f expression for q.
// Single-file containers are preferred so that no ffmpeg merge is needed.
func FormatSelector(q Quality) string {
	switch q {
	case QualityBest:
		return "best"
	case Quality1080p:
		return "best[ext=mp4][height<=1080]/best[height<=1080]/best"
	case Quality720p:
		return "best[ext=mp4][height<=720]/best[height<=720]/best"
	case QualityAudioOnly:
		return "bestaudio[ext=m4a]/bestaudio"
	}
	return "best"
}

func (q Quality) IsAudio() bool { return q == QualityAudioOnly }

func (q *Quality) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*q = ParseQuality(s)
	return nil
}
