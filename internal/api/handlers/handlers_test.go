package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/batch"
	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/redis"
)

type fakeData struct {
	bars    map[string][]contracts.PriceBar
	records map[string][]contracts.FundamentalRecord
	tickers []string
}

func (f *fakeData) History(_ context.Context, ticker string, _, _ time.Time) ([]contracts.PriceBar, error) {
	return f.bars[ticker], nil
}

func (f *fakeData) BatchHistory(_ context.Context, tickers []string, _, _ time.Time) (map[string][]contracts.PriceBar, error) {
	out := make(map[string][]contracts.PriceBar)
	for _, t := range tickers {
		out[t] = f.bars[t]
	}
	return out, nil
}

func (f *fakeData) Query(_ context.Context, ticker string, _ contracts.PeriodType, _ contracts.ReportType) ([]contracts.FundamentalRecord, error) {
	return f.records[ticker], nil
}

func (f *fakeData) All(_ context.Context) ([]string, error) {
	return f.tickers, nil
}

type fakeStore struct {
	results map[string]*contracts.ModelResult
	pushed  []*contracts.ModelResult
}

func storeKey(ticker string, years, numFactors int) string {
	return redis.ModelResultKey(ticker, years, numFactors)
}

func (s *fakeStore) Push(_ context.Context, result *contracts.ModelResult) error {
	s.pushed = append(s.pushed, result)
	return nil
}

func (s *fakeStore) Get(_ context.Context, ticker string, years, numFactors int) (*contracts.ModelResult, error) {
	return s.results[storeKey(ticker, years, numFactors)], nil
}

type fakeEstimator struct {
	result *contracts.ModelResult
	err    error
}

func (e *fakeEstimator) Run(_ context.Context, ticker string, variant contracts.ModelVariant, start, end time.Time) (*contracts.ModelResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	result := *e.result
	result.Ticker = ticker
	result.ModelName = variant.Name()
	result.StartDate = start
	result.EndDate = end
	return &result, nil
}

func noopCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	return redis.NewCache(client, "factorlens_test")
}

func testRouter(t *testing.T, data *fakeData, store *fakeStore, est *fakeEstimator) *mux.Router {
	t.Helper()
	log := logger.NewNop()

	dataHandler := NewDataHandler(data, data, data, log)
	modelsHandler := NewModelsHandler(store, noopCache(t), func() batch.Estimator { return est }, log)

	r := mux.NewRouter()
	r.HandleFunc("/api/tickers", dataHandler.GetTickers).Methods("GET")
	r.HandleFunc("/api/price_history/{ticker}", dataHandler.GetPriceHistory).Methods("GET")
	r.HandleFunc("/api/balance_sheet/{period}/{ticker}", dataHandler.GetBalanceSheet).Methods("GET")
	r.HandleFunc("/api/income/{period}/{ticker}", dataHandler.GetIncome).Methods("GET")
	r.HandleFunc("/api/models/{years}/{ticker}/{factors}", modelsHandler.GetResult).Methods("GET")
	r.HandleFunc("/api/models/estimate", modelsHandler.Estimate).Methods("POST")
	return r
}

func TestGetTickers(t *testing.T) {
	router := testRouter(t, &fakeData{tickers: []string{"AAA", "BBB"}}, &fakeStore{}, &fakeEstimator{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/tickers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count   int      `json:"count"`
		Tickers []string `json:"tickers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, []string{"AAA", "BBB"}, body.Tickers)
}

func TestGetPriceHistory(t *testing.T) {
	data := &fakeData{bars: map[string][]contracts.PriceBar{
		"AAA": {{Ticker: "AAA", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 101}},
	}}
	router := testRouter(t, data, &fakeStore{}, &fakeEstimator{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/price_history/AAA?start=2024-01-01&end=2024-01-31", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/price_history/NONE", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/price_history/AAA?start=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBalanceSheet_InvalidPeriod(t *testing.T) {
	router := testRouter(t, &fakeData{}, &fakeStore{}, &fakeEstimator{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/balance_sheet/monthly/AAA", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetResult(t *testing.T) {
	stored := &contracts.ModelResult{
		Ticker:    "AAA",
		ModelName: "CAPM",
		StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Betas:     map[contracts.FactorName]float64{contracts.FactorMarket: 1.1},
	}
	store := &fakeStore{results: map[string]*contracts.ModelResult{
		storeKey("AAA", 1, 1): stored,
	}}
	router := testRouter(t, &fakeData{}, store, &fakeEstimator{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/models/1/AAA/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got contracts.ModelResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "CAPM", got.ModelName)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/models/1/NONE/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/models/1/AAA/9", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimate(t *testing.T) {
	est := &fakeEstimator{result: &contracts.ModelResult{
		Betas: map[contracts.FactorName]float64{contracts.FactorMarket: 1.2},
	}}
	store := &fakeStore{}
	router := testRouter(t, &fakeData{}, store, est)

	payload, _ := json.Marshal(EstimateRequest{
		Ticker: "AAA",
		Model:  "capm",
		Start:  "2023-01-01",
		End:    "2024-01-01",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/models/estimate", bytes.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.pushed, 1)
	assert.Equal(t, "AAA", store.pushed[0].Ticker)
	assert.Equal(t, "CAPM", store.pushed[0].ModelName)
}

func TestEstimate_Validation(t *testing.T) {
	router := testRouter(t, &fakeData{}, &fakeStore{}, &fakeEstimator{})

	cases := []EstimateRequest{
		{Model: "capm", Start: "2023-01-01"},            // missing ticker
		{Ticker: "AAA", Model: "seven_factor"},          // unknown model
		{Ticker: "AAA", Model: "capm"},                  // neither start nor years
		{Ticker: "AAA", Model: "capm", Start: "nope"},   // bad date
		{Ticker: "AAA", Model: "capm", Start: "2025-01-01", End: "2024-01-01"}, // inverted
	}
	for _, c := range cases {
		payload, _ := json.Marshal(c)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/models/estimate", bytes.NewReader(payload)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%+v", c)
	}
}

func TestEstimate_EstimationFailure(t *testing.T) {
	est := &fakeEstimator{err: errors.New("insufficient data")}
	router := testRouter(t, &fakeData{}, &fakeStore{}, est)

	payload, _ := json.Marshal(EstimateRequest{Ticker: "AAA", Model: "capm", Years: 5})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/models/estimate", bytes.NewReader(payload)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
