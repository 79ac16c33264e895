package terminal

import (
	"fmt"
	"io"

	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/schollz/progressbar/v3"
)

// bar resolution, one step per tenth of a percent
const barMax = 1000

type renderer interface {
	Render(snap internal.ProcessSnapshot)
	Close(snap internal.ProcessSnapshot)
}

type barRenderer struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

func newBarRenderer(out io.Writer) *barRenderer {
	return &barRenderer{
		out: out,
		bar: progressbar.NewOptions(
			barMax,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetDescription("Idle"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		),
	}
}

func (b *barRenderer) Render(snap internal.ProcessSnapshot) {
	b.bar.Describe(snap.Progress.Text)
	b.bar.Set(int(snap.Progress.Percentage * barMax / 100))
}

func (b *barRenderer) Close(snap internal.ProcessSnapshot) {
	b.Render(snap)
	fmt.Fprintln(b.out)
}

// lineRenderer prints one line per status text change, for pipes and logs.
type lineRenderer struct {
	out  io.Writer
	last string
}

func (l *lineRenderer) Render(snap internal.ProcessSnapshot) {
	if snap.Progress.Text == l.last {
		return
	}
	l.last = snap.Progress.Text
	fmt.Fprintln(l.out, snap.Progress.Text)
}

func (l *lineRenderer) Close(snap internal.ProcessSnapshot) { l.Render(snap) }
