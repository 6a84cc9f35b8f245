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

func newSubmitCmd() *cobra.Command {
	var (
		opts  slurm.SubmitOptions
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "submit <script>",
		Short: "Submit a batch script via sbatch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newSchedulerClient()

			id, err := client.Submit(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted batch job %d\n", id)

			if !watch {
				return nil
			}

			closeLog, err := logging.InitFile(logging.Config{Level: cfg.Logging.Level}, cfg.Logging.File)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			controller := tui.NewController(client, cfg)
			controller.Track(id)
			return controller.Run(ctx, cfg.Discovery.Enabled)
		},
	}

	cmd.Flags().StringVarP(&opts.JobName, "job-name", "J", "", "job name")
	cmd.Flags().StringVarP(&opts.Partition, "partition", "P", "", "partition")
	cmd.Flags().StringVarP(&opts.TimeLimit, "time", "t", "", "time limit (e.g. 01:30:00)")
	cmd.Flags().IntVarP(&opts.Nodes, "nodes", "N", 0, "node count")
	cmd.Flags().IntVarP(&opts.CPUs, "cpus-per-task", "c", 0, "cpus per task")
	cmd.Flags().StringVar(&opts.Gres, "gres", "", "generic resources (e.g. gpu:2)")
	cmd.Flags().StringArrayVar(&opts.ExtraArgs, "sbatch-arg", nil, "extra argument passed to sbatch (repeatable)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "open the dashboard after submitting")

	return cmd
}
