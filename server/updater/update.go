package updater

import (
	"context"
	"log/slog"
	"os/exec"

	"github.com/marcopiovanello/yt-dlp-remote/server/config"
)

// Update using the builtin function of yt-dlp
func UpdateExecutable(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, config.Instance().Paths.DownloaderPath, "-U")

	out, err := cmd.CombinedOutput()
	slog.Warn("yt-dlp self update", slog.String("output", string(out)))

	return err
}
