// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/logger"
)

const dateLayout = "2006-01-02"

// DataHandler handles market data API endpoints
type DataHandler struct {
	prices       contracts.PriceSeriesProvider
	fundamentals contracts.FundamentalsProvider
	universe     contracts.TickerUniverseProvider
	logger       *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(
	prices contracts.PriceSeriesProvider,
	fundamentals contracts.FundamentalsProvider,
	universe contracts.TickerUniverseProvider,
	log *logger.Logger,
) *DataHandler {
	return &DataHandler{
		prices:       prices,
		fundamentals: fundamentals,
		universe:     universe,
		logger:       log,
	}
}

// GetTickers returns the active ticker universe
// GET /api/tickers
func (h *DataHandler) GetTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.universe.All(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get tickers")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve tickers")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(tickers),
		"tickers": tickers,
	})
}

// GetPriceHistory returns daily bars for a ticker
// GET /api/price_history/{ticker}?start=YYYY-MM-DD&end=YYYY-MM-DD
// Defaults to the trailing year when the range is omitted.
func (h *DataHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(-1, 0, 0)

	if s := r.URL.Query().Get("start"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
			return
		}
		start = parsed
	}
	if s := r.URL.Query().Get("end"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD")
			return
		}
		end = parsed
	}
	if end.Before(start) {
		respondError(w, http.StatusBadRequest, "end date before start date")
		return
	}

	bars, err := h.prices.History(r.Context(), ticker, start, end)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to get price history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve price history")
		return
	}
	if len(bars) == 0 {
		respondError(w, http.StatusNotFound, "No price data for ticker")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"count":  len(bars),
		"bars":   bars,
	})
}

// GetBalanceSheet returns balance sheet records for a ticker
// GET /api/balance_sheet/{period}/{ticker}
func (h *DataHandler) GetBalanceSheet(w http.ResponseWriter, r *http.Request) {
	h.getFundamentals(w, r, contracts.ReportBalanceSheet)
}

// GetIncome returns income statement records for a ticker
// GET /api/income/{period}/{ticker}
func (h *DataHandler) GetIncome(w http.ResponseWriter, r *http.Request) {
	h.getFundamentals(w, r, contracts.ReportIncome)
}

func (h *DataHandler) getFundamentals(w http.ResponseWriter, r *http.Request, reportType contracts.ReportType) {
	vars := mux.Vars(r)
	ticker := vars["ticker"]

	periodType, ok := parsePeriod(vars["period"])
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid period, expected quarterly, annual or ttm")
		return
	}

	records, err := h.fundamentals.Query(r.Context(), ticker, periodType, reportType)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to get fundamentals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve fundamentals")
		return
	}
	if len(records) == 0 {
		respondError(w, http.StatusNotFound, "No fundamental data for ticker")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":  ticker,
		"period":  periodType,
		"report":  reportType,
		"count":   len(records),
		"records": records,
	})
}

func parsePeriod(s string) (contracts.PeriodType, bool) {
	switch contracts.PeriodType(s) {
	case contracts.PeriodQuarterly, contracts.PeriodAnnual, contracts.PeriodTTM:
		return contracts.PeriodType(s), true
	default:
		return "", false
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
