// Package cli wires the cobra commands of yt-dlp-remote.
package cli

import (
	"io"
	"os"

	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/spf13/cobra"
)

// set at build time with -ldflags "-X .../cli.Version=..."
var Version = "dev"

// NewRootCmd builds the command tree. out receives command output.
func NewRootCmd(out io.Writer) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "yt-dlp-remote",
		Short:         "Download videos with yt-dlp, from a browser or a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load(configFile, config.Instance())
		},
	}

	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "./config.yml", "Config file path")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

func Execute() error {
	return NewRootCmd(os.Stdout).Execute()
}
