package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "factorlens",
	Short: "Multi-factor asset pricing engine",
	Long: `factorlens estimates CAPM, Fama-French and Carhart factor models
over daily price data, constructs the factor return series from
characteristic-sorted portfolios and serves the results over HTTP.

Usage:
  go run ./cmd/factorlens [command]

Examples:
  go run ./cmd/factorlens api
  go run ./cmd/factorlens estimate --ticker AAPL --model five_factor --years 10
  go run ./cmd/factorlens batch
  go run ./cmd/factorlens scheduler`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
