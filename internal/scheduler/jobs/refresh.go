// Package jobs holds the scheduled job implementations.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorlens/internal/batch"
	"github.com/wonny/factorlens/pkg/logger"
)

// ModelRefreshJob re-estimates the standard model set for the whole universe
// every weekday evening, after the day's prices have settled
type ModelRefreshJob struct {
	runner *batch.Runner
	logger *logger.Logger
}

// NewModelRefreshJob creates a new model refresh job
func NewModelRefreshJob(runner *batch.Runner, log *logger.Logger) *ModelRefreshJob {
	return &ModelRefreshJob{
		runner: runner,
		logger: log,
	}
}

// Name returns the job name
func (j *ModelRefreshJob) Name() string {
	return "model_refresh"
}

// Schedule returns the cron schedule (6 PM on weekdays, with seconds)
func (j *ModelRefreshJob) Schedule() string {
	return "0 0 18 * * 1-5"
}

// Run executes a full-universe batch estimation ending today. Individual
// ticker failures are reported but do not fail the job.
func (j *ModelRefreshJob) Run(ctx context.Context) error {
	report, err := j.runner.Run(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("batch run: %w", err)
	}

	if len(report.Failed) > 0 {
		j.logger.WithFields(map[string]interface{}{
			"succeeded": report.Succeeded,
			"failed":    len(report.Failed),
		}).Warn("Model refresh finished with failures")
		for _, f := range report.Failed {
			j.logger.WithError(f.Err).WithField("task", f.Task.String()).Warn("Failed task")
		}
	}
	return nil
}
