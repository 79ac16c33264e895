package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/marcopiovanello/yt-dlp-remote/server"
	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/terminal"
	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	var (
		output  string
		quality string
		resume  bool
	)

	cmd := &cobra.Command{
		Use:   "get [url]",
		Short: "Download a single video with a progress bar",
		Long: "Download a single video in the terminal.\n\n" +
			"Keys: p pause, r resume, s stop, q quit. A paused download can be\n" +
			"continued later with --resume.",
		Args: func(cmd *cobra.Command, args []string) error {
			if resume {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Instance()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// the bar owns stdout, logs only go to the log file
			cleanup, err := server.SetupLogging(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			app, err := server.NewApp()
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			req := internal.DownloadRequest{
				Path:    output,
				Quality: internal.ParseQuality(cfg.Downloader.DefaultQuality),
			}
			if len(args) > 0 {
				req.URL = args[0]
			}
			if cmd.Flags().Changed("quality") {
				req.Quality = internal.ParseQuality(quality)
			}
			if req.Path == "" {
				req.Path = cfg.Paths.DownloadPath
			}

			opts := terminal.Options{
				Output: cmd.OutOrStdout(),
				Resume: resume,
			}

			if terminal.IsInteractive() {
				commands, restore, err := terminal.OpenKeyboard()
				if err != nil {
					return fmt.Errorf("failed to read the keyboard: %w", err)
				}
				defer restore()
				opts.Commands = commands
			}

			snap, err := terminal.New(app.Controller, app.Bus, opts).Run(ctx, req)
			if errors.Is(err, terminal.ErrDownloadFailed) && snap.Error != "" {
				return fmt.Errorf("%w: %s", err, snap.Error)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Folder to save downloads into")
	cmd.Flags().StringVarP(&quality, "quality", "q", "Best", "Best, 1080p, 720p or audio")
	cmd.Flags().BoolVar(&resume, "resume", false, "Resume the previously paused download")

	return cmd
}
