package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Re-estimate models for the whole universe",
	Long: `Runs a full-universe batch estimation: the five- and six-factor
models over the trailing 10- and 5-year windows for every active ticker,
storing each result.

Example:
  go run ./cmd/factorlens batch
  go run ./cmd/factorlens batch --end 2025-12-31`,
	RunE: runBatch,
}

var batchEnd string

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchEnd, "end", "", "window end date YYYY-MM-DD (default today)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if batchEnd != "" {
		parsed, err := time.Parse("2006-01-02", batchEnd)
		if err != nil {
			return fmt.Errorf("invalid --end date: %w", err)
		}
		end = parsed
	}

	d, err := setup()
	if err != nil {
		return err
	}
	defer d.close()

	report, err := d.newBatchRunner().Run(context.Background(), end)
	if err != nil {
		return fmt.Errorf("batch run: %w", err)
	}

	fmt.Printf("Batch finished in %s: %d succeeded, %d failed\n",
		report.Duration.Round(time.Second), report.Succeeded, len(report.Failed))
	for _, f := range report.Failed {
		fmt.Printf("  FAILED %s: %v\n", f.Task, f.Err)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d tasks failed", len(report.Failed))
	}
	return nil
}
