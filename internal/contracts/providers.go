package contracts

import (
	"context"
	"time"
)

// PriceSeriesProvider serves daily price history for one or many tickers.
// Bars come back ordered by date ascending.
type PriceSeriesProvider interface {
	History(ctx context.Context, ticker string, start, end time.Time) ([]PriceBar, error)
	BatchHistory(ctx context.Context, tickers []string, start, end time.Time) (map[string][]PriceBar, error)
}

// FundamentalsProvider serves periodic fundamental records for a ticker,
// ordered by as-of date ascending
type FundamentalsProvider interface {
	Query(ctx context.Context, ticker string, periodType PeriodType, reportType ReportType) ([]FundamentalRecord, error)
}

// RiskFreeRateProvider serves an annualized short-term rate series
// (e.g. the 3-month T-bill, FRED series TB3MS)
type RiskFreeRateProvider interface {
	Series(ctx context.Context, seriesID string, start, end time.Time) ([]RatePoint, error)
}

// TickerUniverseProvider serves the cross-section of tickers used for factor
// construction. Injected, never a global.
type TickerUniverseProvider interface {
	All(ctx context.Context) ([]string, error)
}

// ResultsStore persists model results keyed by
// (ticker, rounded years, factor count), overwriting prior rows
type ResultsStore interface {
	Push(ctx context.Context, result *ModelResult) error
	Get(ctx context.Context, ticker string, years, numFactors int) (*ModelResult, error)
}
