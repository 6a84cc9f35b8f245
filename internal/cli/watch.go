package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"slurm-watch/internal/logging"
	"slurm-watch/internal/slurm"
	"slurm-watch/internal/tui"
)

func newWatchCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "watch [job-id...]",
		Short: "Watch jobs in the live dashboard",
		Long: `Watch opens the dashboard for the given job ids, polling their status
and tailing their stdout/stderr files. With --all it discovers and
follows every job of the current user.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("no job ids given; pass ids or --all")
			}

			ids := make([]slurm.JobID, 0, len(args))
			for _, arg := range args {
				id, err := slurm.ParseJobID(arg)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			// The dashboard owns the terminal; logs go to the file.
			closeLog, err := logging.InitFile(logging.Config{Level: cfg.Logging.Level}, cfg.Logging.File)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := newSchedulerClient()
			controller := tui.NewController(client, cfg)
			controller.Track(ids...)

			if all {
				rows, err := client.VisibleJobs(ctx)
				if err != nil {
					return err
				}
				for _, row := range rows {
					controller.Track(row.ID)
				}
			}

			return controller.Run(ctx, all || cfg.Discovery.Enabled)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "watch all jobs of the current user")
	return cmd
}
