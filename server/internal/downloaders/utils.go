package downloaders

import (
	"bufio"
	"io"
	"path/filepath"

	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
)

const (
	outputTemplate = "%(title)s.%(ext)s"
	maxLineSize    = 1024 * 1024
)

// buildParams assembles the yt-dlp argument vector for req. The URL always
// goes last.
func buildParams(req internal.DownloadRequest) []string {
	params := []string{
		"--newline", // one progress update per line
		"--no-warnings",
		"--no-overwrites", // what makes resume-after-pause skip finished files
		"-o", filepath.Join(req.Path, outputTemplate),
		"-f", internal.FormatSelector(req.Quality),
	}

	// written as a separate file, embedding would need ffmpeg
	if req.Quality.IsAudio() {
		params = append(params, "--write-thumbnail")
	}

	return append(params, req.URL)
}

// produceLogs scans r line by line until EOF or a read error. handle is
// called synchronously for every line.
func produceLogs(r io.Reader, handle func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		handle(scanner.Text())
	}

	return scanner.Err()
}
