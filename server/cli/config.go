package cli

import (
	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Instance().Dump(cmd.OutOrStdout())
		},
	}
}
