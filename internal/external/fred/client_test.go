package fred

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/httputil"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/redis"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewNop()
	redisClient, err := redis.New(&config.Config{}) // disabled: cache is a no-op
	require.NoError(t, err)
	cache := redis.NewCache(redisClient, "factorlens_test")

	httpClient := httputil.New(log).DisableRetry()
	return New(httpClient, cache, "test-key", server.URL, log), server
}

func TestSeries(t *testing.T) {
	var gotQuery map[string]string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"series_id":         r.URL.Query().Get("series_id"),
			"api_key":           r.URL.Query().Get("api_key"),
			"file_type":         r.URL.Query().Get("file_type"),
			"observation_start": r.URL.Query().Get("observation_start"),
			"observation_end":   r.URL.Query().Get("observation_end"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"observations": [
				{"date": "2024-01-02", "value": "5.25"},
				{"date": "2024-01-03", "value": "."},
				{"date": "2024-01-04", "value": "5.27"}
			]
		}`))
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	points, err := client.Series(context.Background(), "TB3MS", start, end)
	require.NoError(t, err)

	assert.Equal(t, "TB3MS", gotQuery["series_id"])
	assert.Equal(t, "test-key", gotQuery["api_key"])
	assert.Equal(t, "json", gotQuery["file_type"])
	assert.Equal(t, "2024-01-01", gotQuery["observation_start"])
	assert.Equal(t, "2024-01-31", gotQuery["observation_end"])

	// The "." gap is dropped
	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, 5.25, points[0].Value)
	assert.Equal(t, 5.27, points[1].Value)
}

func TestSeries_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	})

	_, err := client.Series(context.Background(),
		"TB3MS", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)

	var providerErr *contracts.ExternalProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "fred", providerErr.Provider)
}

func TestSeries_MalformedPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.Series(context.Background(),
		"TB3MS", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)

	var providerErr *contracts.ExternalProviderError
	assert.ErrorAs(t, err, &providerErr)
}
