// Package api exposes the HTTP surface: market data lookups, stored model
// results and on-demand model estimation.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/factorlens/internal/api/handlers"
	"github.com/wonny/factorlens/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(dataHandler *handlers.DataHandler, modelsHandler *handlers.ModelsHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Market data endpoints
	api.HandleFunc("/tickers", dataHandler.GetTickers).Methods("GET")
	api.HandleFunc("/price_history/{ticker}", dataHandler.GetPriceHistory).Methods("GET")
	api.HandleFunc("/balance_sheet/{period}/{ticker}", dataHandler.GetBalanceSheet).Methods("GET")
	api.HandleFunc("/income/{period}/{ticker}", dataHandler.GetIncome).Methods("GET")

	// Model endpoints
	api.HandleFunc("/models/{years}/{ticker}/{factors}", modelsHandler.GetResult).Methods("GET")
	api.HandleFunc("/models/estimate", modelsHandler.Estimate).Methods("POST")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "factorlens-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
