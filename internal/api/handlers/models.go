package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/factorlens/internal/batch"
	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/redis"
)

// ModelsHandler handles model result and estimation endpoints
type ModelsHandler struct {
	store        contracts.ResultsStore
	cache        *redis.Cache
	newEstimator func() batch.Estimator
	logger       *logger.Logger
}

// NewModelsHandler creates a new models handler. newEstimator opens a fresh
// estimation session per request.
func NewModelsHandler(
	store contracts.ResultsStore,
	cache *redis.Cache,
	newEstimator func() batch.Estimator,
	log *logger.Logger,
) *ModelsHandler {
	return &ModelsHandler{
		store:        store,
		cache:        cache,
		newEstimator: newEstimator,
		logger:       log,
	}
}

// GetResult returns a stored model result
// GET /api/models/{years}/{ticker}/{factors}
func (h *ModelsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ticker := vars["ticker"]

	years, err := strconv.Atoi(vars["years"])
	if err != nil || years < 1 {
		respondError(w, http.StatusBadRequest, "Invalid years")
		return
	}
	factors, err := strconv.Atoi(vars["factors"])
	if err != nil || factors < 1 || factors > 6 {
		respondError(w, http.StatusBadRequest, "Invalid factor count")
		return
	}

	cacheKey := redis.ModelResultKey(ticker, years, factors)
	var cached contracts.ModelResult
	if hit, err := h.cache.Get(r.Context(), cacheKey, &cached); err == nil && hit {
		respondJSON(w, http.StatusOK, &cached)
		return
	}

	result, err := h.store.Get(r.Context(), ticker, years, factors)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to get model result")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve model result")
		return
	}
	if result == nil {
		respondError(w, http.StatusNotFound, "No model result for key")
		return
	}

	if err := h.cache.Set(r.Context(), cacheKey, result, redis.TTLShort); err != nil {
		h.logger.WithError(err).Warn("Failed to cache model result")
	}
	respondJSON(w, http.StatusOK, result)
}

// EstimateRequest is an on-demand estimation request
type EstimateRequest struct {
	Ticker string `json:"ticker"`
	Model  string `json:"model"`           // capm, three_factor, ..., six_factor (or 1/3/4/5/6)
	Start  string `json:"start"`           // YYYY-MM-DD
	End    string `json:"end,omitempty"`   // YYYY-MM-DD, defaults to today
	Years  int    `json:"years,omitempty"` // alternative to start: trailing window length
}

// Estimate runs one model variant on demand, persists the result and
// returns it
// POST /api/models/estimate
func (h *ModelsHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	variant, err := contracts.ParseVariant(req.Model)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if req.End != "" {
		end, err = time.Parse(dateLayout, req.End)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD")
			return
		}
	}

	var start time.Time
	switch {
	case req.Start != "":
		start, err = time.Parse(dateLayout, req.Start)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
			return
		}
	case req.Years > 0:
		start = end.AddDate(-req.Years, 0, 0)
	default:
		respondError(w, http.StatusBadRequest, "start or years is required")
		return
	}
	if !start.Before(end) {
		respondError(w, http.StatusBadRequest, "start must precede end")
		return
	}

	result, err := h.newEstimator().Run(r.Context(), req.Ticker, variant, start, end)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"ticker": req.Ticker,
			"model":  variant.Name(),
		}).Error("Estimation failed")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.store.Push(r.Context(), result); err != nil {
		h.logger.WithError(err).Error("Failed to persist model result")
		respondError(w, http.StatusInternalServerError, "Failed to persist model result")
		return
	}

	// Stored result changed: drop the stale cache entry
	cacheKey := redis.ModelResultKey(result.Ticker, result.Years(), result.NumFactors())
	if err := h.cache.Delete(r.Context(), cacheKey); err != nil {
		h.logger.WithError(err).Warn("Failed to invalidate model result cache")
	}

	respondJSON(w, http.StatusCreated, result)
}
