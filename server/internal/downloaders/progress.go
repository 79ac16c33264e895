package downloaders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	percentRe  = regexp.MustCompile(`(\d{1,3}\.\d|\d{1,3})%`)
	speedRe    = regexp.MustCompile(`at\s+([0-9.]+\w+/s)`)
	etaRe      = regexp.MustCompile(`ETA\s*([0-9:.]+)`)
	elapsedRe  = regexp.MustCompile(`in\s+([0-9:.]+)`)
	noProgress = -1.0
)

// ProgressLine is what could be extracted from a single line of yt-dlp output.
//
//	[download]   3.4% of 4.08MiB at  1.23MiB/s ETA 00:03
//	[download] 100% of 4.08MiB in 00:03
type ProgressLine struct {
	Percent float64 // -1 when the line carries no percentage
	Speed   string
	ETA     string
	Text    string
}

func (p ProgressLine) HasPercent() bool { return p.Percent >= 0 }

// ParseProgressLine is a best effort extraction, it never fails.
func ParseProgressLine(line string) ProgressLine {
	p := ProgressLine{
		Percent: noProgress,
		Text:    strings.TrimSpace(line),
	}

	if m := percentRe.FindStringSubmatch(line); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.Percent = f
		}
	}

	if m := speedRe.FindStringSubmatch(line); m != nil {
		p.Speed = m[1]
	}

	m := etaRe.FindStringSubmatch(line)
	if m == nil {
		m = elapsedRe.FindStringSubmatch(line)
	}
	if m != nil {
		p.ETA = m[1]
	}

	return p
}

// StatusText renders p the way front-ends display it. Lines without a
// percentage are shown verbatim.
func StatusText(p ProgressLine) string {
	if !p.HasPercent() {
		return p.Text
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Downloading: %.1f%%", p.Percent)
	if p.Speed != "" {
		b.WriteString(" | ")
		b.WriteString(p.Speed)
	}
	if p.ETA != "" {
		b.WriteString(" | ETA ")
		b.WriteString(p.ETA)
	}
	return b.String()
}
