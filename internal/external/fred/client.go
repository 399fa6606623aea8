// Package fred fetches economic data series from the FRED API, primarily the
// 3-month Treasury bill rate used as the risk-free rate.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/httputil"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/redis"
)

const dateLayout = "2006-01-02"

// Client implements contracts.RiskFreeRateProvider against the FRED
// observations endpoint, with a Redis-backed daily cache in front of it
type Client struct {
	http    *httputil.Client
	cache   *redis.Cache
	logger  *logger.Logger
	apiKey  string
	baseURL string
}

// New creates a FRED client. The rate limiter on the HTTP client keeps
// requests inside FRED's per-minute quota.
func New(httpClient *httputil.Client, cache *redis.Cache, apiKey, baseURL string, log *logger.Logger) *Client {
	return &Client{
		http:    httpClient,
		cache:   cache,
		logger:  log.WithComponent("fred"),
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

// observationsResponse mirrors the FRED JSON payload
type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Series fetches the observations of a series within [start, end] as
// annualized percent values. Missing observations (reported as ".") are
// skipped. Served from cache when a prior call covered the same window.
func (c *Client) Series(ctx context.Context, seriesID string, start, end time.Time) ([]contracts.RatePoint, error) {
	cacheKey := redis.RateSeriesKey(seriesID, start, end)

	var cached []contracts.RatePoint
	if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		c.logger.WithField("series_id", seriesID).Debug("Rate series served from cache")
		return cached, nil
	}

	points, err := c.fetch(ctx, seriesID, start, end)
	if err != nil {
		return nil, &contracts.ExternalProviderError{Provider: "fred", Err: err}
	}

	if err := c.cache.Set(ctx, cacheKey, points, redis.TTLDaily); err != nil {
		c.logger.WithError(err).Warn("Failed to cache rate series")
	}
	return points, nil
}

func (c *Client) fetch(ctx context.Context, seriesID string, start, end time.Time) ([]contracts.RatePoint, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", start.Format(dateLayout))
	params.Set("observation_end", end.Format(dateLayout))

	endpoint := fmt.Sprintf("%s/series/observations?%s", c.baseURL, params.Encode())

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("series %s: status %d: %s", seriesID, resp.StatusCode, body)
	}

	var payload observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}

	points := make([]contracts.RatePoint, 0, len(payload.Observations))
	for _, obs := range payload.Observations {
		if obs.Value == "." {
			// FRED reports gaps as "."
			continue
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"series_id": seriesID,
				"date":      obs.Date,
				"value":     obs.Value,
			}).Warn("Skipping unparseable observation")
			continue
		}
		date, err := time.Parse(dateLayout, obs.Date)
		if err != nil {
			return nil, fmt.Errorf("parse observation date %q: %w", obs.Date, err)
		}
		points = append(points, contracts.RatePoint{Date: date, Value: value})
	}

	c.logger.WithFields(map[string]interface{}{
		"series_id":    seriesID,
		"observations": len(points),
	}).Debug("Fetched rate series")

	return points, nil
}
