// Package marketdata holds the PostgreSQL repositories serving prices,
// fundamentals, the ticker universe and persisted model results.
package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorlens/internal/contracts"
)

// PriceRepository implements contracts.PriceSeriesProvider over the
// data.daily_prices table
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// History retrieves daily bars for a ticker within the date range
func (r *PriceRepository) History(ctx context.Context, ticker string, start, end time.Time) ([]contracts.PriceBar, error) {
	query := `
		SELECT ticker, trade_date, open_price, high_price, low_price, close_price, adj_close, volume
		FROM data.daily_prices
		WHERE ticker = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []contracts.PriceBar
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// BatchHistory retrieves daily bars for several tickers in one query,
// grouped by ticker. Tickers without data map to a nil slice.
func (r *PriceRepository) BatchHistory(ctx context.Context, tickers []string, start, end time.Time) (map[string][]contracts.PriceBar, error) {
	query := `
		SELECT ticker, trade_date, open_price, high_price, low_price, close_price, adj_close, volume
		FROM data.daily_prices
		WHERE ticker = ANY($1) AND trade_date BETWEEN $2 AND $3
		ORDER BY ticker, trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, tickers, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]contracts.PriceBar, len(tickers))
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, err
		}
		out[b.Ticker] = append(out[b.Ticker], b)
	}
	return out, rows.Err()
}

// Save upserts a single bar
func (r *PriceRepository) Save(ctx context.Context, bar *contracts.PriceBar) error {
	query := `
		INSERT INTO data.daily_prices (ticker, trade_date, open_price, high_price, low_price, close_price, adj_close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			adj_close = EXCLUDED.adj_close,
			volume = EXCLUDED.volume
	`

	_, err := r.pool.Exec(ctx, query,
		bar.Ticker, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.AdjClose, bar.Volume,
	)
	return err
}

// SaveBatch upserts multiple bars
func (r *PriceRepository) SaveBatch(ctx context.Context, bars []contracts.PriceBar) error {
	for i := range bars {
		if err := r.Save(ctx, &bars[i]); err != nil {
			return err
		}
	}
	return nil
}
