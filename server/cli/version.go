package cli

import (
	"fmt"

	"github.com/marcopiovanello/yt-dlp-remote/server/internal/metadata"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of yt-dlp-remote and yt-dlp",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "yt-dlp-remote %s\n", Version)

			v, err := metadata.Version(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "yt-dlp unavailable: %v\n", err)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "yt-dlp %s\n", v)
			return nil
		},
	}
}
