package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/contracts"
)

// estimateCmd represents the estimate command
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate a factor model for one ticker",
	Long: `Runs one model variant for a ticker over a trailing window, prints
the annualized summary and stores the result.

Models: capm, three_factor, four_factor, five_factor, six_factor
(or the factor count: 1, 3, 4, 5, 6)

Example:
  go run ./cmd/factorlens estimate --ticker AAPL --model capm --years 5
  go run ./cmd/factorlens estimate --ticker MSFT --model five_factor --years 10`,
	RunE: runEstimate,
}

var (
	estimateTicker string
	estimateModel  string
	estimateYears  int
	estimateEnd    string
)

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringVar(&estimateTicker, "ticker", "", "ticker symbol (required)")
	estimateCmd.Flags().StringVar(&estimateModel, "model", "capm", "model variant")
	estimateCmd.Flags().IntVar(&estimateYears, "years", 5, "trailing window length in years")
	estimateCmd.Flags().StringVar(&estimateEnd, "end", "", "window end date YYYY-MM-DD (default today)")
	estimateCmd.MarkFlagRequired("ticker")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	variant, err := contracts.ParseVariant(estimateModel)
	if err != nil {
		return err
	}
	if estimateYears < 1 {
		return fmt.Errorf("--years must be at least 1")
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if estimateEnd != "" {
		end, err = time.Parse("2006-01-02", estimateEnd)
		if err != nil {
			return fmt.Errorf("invalid --end date: %w", err)
		}
	}
	start := end.AddDate(-estimateYears, 0, 0)

	d, err := setup()
	if err != nil {
		return err
	}
	defer d.close()

	ctx := context.Background()
	result, err := d.newOrchestrator().Run(ctx, estimateTicker, variant, start, end)
	if err != nil {
		return fmt.Errorf("estimate %s: %w", estimateTicker, err)
	}

	if err := d.results.Push(ctx, result); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}

	fmt.Println(result.Summary())
	return nil
}
