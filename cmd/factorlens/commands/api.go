package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/api"
	"github.com/wonny/factorlens/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the HTTP API server.

Endpoints:
  GET  /health                                - Health check
  GET  /api/tickers                           - Ticker universe
  GET  /api/price_history/{ticker}            - Daily price bars
  GET  /api/balance_sheet/{period}/{ticker}   - Balance sheet records
  GET  /api/income/{period}/{ticker}          - Income statement records
  GET  /api/models/{years}/{ticker}/{factors} - Stored model result
  POST /api/models/estimate                   - On-demand estimation

Example:
  go run ./cmd/factorlens api
  go run ./cmd/factorlens api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}
	defer d.close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	dataHandler := handlers.NewDataHandler(d.prices, d.fundamentals, d.universe, d.logger)
	modelsHandler := handlers.NewModelsHandler(d.results, d.cache, d.newEstimator, d.logger)

	router := api.NewRouter(dataHandler, modelsHandler, d.logger)
	server := api.New(d.cfg, d.logger, router)

	// Graceful shutdown on SIGINT/SIGTERM
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		d.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
