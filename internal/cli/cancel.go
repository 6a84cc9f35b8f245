package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"slurm-watch/internal/slurm"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>...",
		Short: "Cancel jobs via scancel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newSchedulerClient()

			for _, arg := range args {
				id, err := slurm.ParseJobID(arg)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				if err := client.Cancel(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled job %d\n", id)
			}
			return nil
		},
	}
}
