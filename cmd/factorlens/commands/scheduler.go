package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/scheduler"
	"github.com/wonny/factorlens/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the job scheduler",
	Long: `Starts the cron scheduler and blocks until interrupted.

Jobs:
  model_refresh - full-universe batch estimation, 6 PM on weekdays

Example:
  go run ./cmd/factorlens scheduler
  go run ./cmd/factorlens scheduler --run-now model_refresh`,
	RunE: runScheduler,
}

var schedulerRunNow string

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().StringVar(&schedulerRunNow, "run-now", "", "trigger a job immediately on startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}
	defer d.close()

	sched := scheduler.New(d.logger)

	refreshJob := jobs.NewModelRefreshJob(d.newBatchRunner(), d.logger)
	if err := sched.AddJob(refreshJob); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	if schedulerRunNow != "" {
		if err := sched.RunJob(schedulerRunNow); err != nil {
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	d.logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	return nil
}
