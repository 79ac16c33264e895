package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/marcopiovanello/yt-dlp-remote/server/archiver"
	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := archiver.Open(config.Instance().ArchiveDBPath())
			if err != nil {
				return err
			}
			defer a.Close()

			entities, err := a.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(entities) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No downloads yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FINISHED\tSTATUS\tQUALITY\tTOOK\tURL")
			for _, e := range entities {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(e.FinishedAt),
					e.Status,
					e.Quality,
					strings.TrimSpace(humanize.RelTime(e.StartedAt, e.FinishedAt, "", "")),
					e.URL,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", archiver.DefaultLimit, "Number of entries to show")

	return cmd
}
