// Package cli implements the slurm-watch command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slurm-watch/internal/config"
	"slurm-watch/internal/logging"
	"slurm-watch/internal/slurm"
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
)

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:          "slurm-watch",
		Short:        "Live dashboard for SLURM jobs and their output",
		Long:         "slurm-watch submits, lists and watches SLURM jobs, tailing their stdout and stderr live in a terminal dashboard.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			if cfgFile != "" {
				loader.SetConfigFile(cfgFile)
			}
			var err error
			cfg, err = loader.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/slurm-watch/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newWatchCmd())
	root.AddCommand(newSubmitCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newCancelCmd())

	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(version string) int {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func newSchedulerClient() *slurm.Client {
	return slurm.NewClient(cfg.Poll.CommandTimeout)
}
