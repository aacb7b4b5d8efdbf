package main

import (
	"time"

	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/ledger/sweeper"

	"github.com/spf13/cobra"
)

var sweepFlags struct {
	maxAge    time.Duration
	batchSize int
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Cancel traces that have been running too long",
	Long: `Run the stale trace sweeper once. Traces still running after --max-age
are ended with status cancelled. Defaults come from ledger.sweeper.

Examples:
  arbiter sweep
  arbiter sweep --max-age 6h --batch-size 100`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().DurationVar(&sweepFlags.maxAge, "max-age", 0, "override ledger.sweeper.max_running_age")
	sweepCmd.Flags().IntVar(&sweepFlags.batchSize, "batch-size", 0, "override ledger.sweeper.batch_size")
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close(commandContext(cmd))

	sc := a.cfg.Ledger.Sweeper
	if sweepFlags.maxAge > 0 {
		sc.MaxRunningAge = sweepFlags.maxAge
	}
	if sweepFlags.batchSize > 0 {
		sc.BatchSize = sweepFlags.batchSize
	}

	n, err := sweeper.New(a.ledger, sc, a.metrics, a.logger.Logger).RunOnce(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("sweep", err)
	}
	cli.Success(cmd.OutOrStdout(), "cancelled %d stale traces (older than %s)", n, sc.MaxRunningAge)
	return nil
}
