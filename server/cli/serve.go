package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcopiovanello/yt-dlp-remote/server"
	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP front-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Instance()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			// Graceful shutdown
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("starting server",
				slog.String("host", cfg.Server.Host),
				slog.Int("port", cfg.Server.Port),
			)

			if err := server.Run(ctx, os.Stdout); err != nil {
				slog.Error("server stopped with error", slog.Any("err", err))
				return err
			}

			slog.Info("server exited cleanly")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Address to listen on, a leading / selects a unix socket")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to listen on")

	return cmd
}
