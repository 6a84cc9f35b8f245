package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current user's jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newSchedulerClient()

			rows, err := client.VisibleJobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOBID\tNAME\tSTATE\tTIME")
			for _, row := range rows {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.ID, row.Name, row.State, row.Elapsed)
			}
			return w.Flush()
		},
	}
}
