package marketdata

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UniverseRepository implements contracts.TickerUniverseProvider over the
// data.tickers table
type UniverseRepository struct {
	pool *pgxpool.Pool
}

// NewUniverseRepository creates a new universe repository
func NewUniverseRepository(pool *pgxpool.Pool) *UniverseRepository {
	return &UniverseRepository{pool: pool}
}

// All retrieves the active ticker universe sorted alphabetically
func (r *UniverseRepository) All(ctx context.Context) ([]string, error) {
	query := `
		SELECT ticker
		FROM data.tickers
		WHERE is_active = true
		ORDER BY ticker ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, err
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}

// Add upserts a ticker into the universe
func (r *UniverseRepository) Add(ctx context.Context, ticker string) error {
	query := `
		INSERT INTO data.tickers (ticker, is_active)
		VALUES ($1, true)
		ON CONFLICT (ticker) DO UPDATE SET is_active = true
	`

	_, err := r.pool.Exec(ctx, query, ticker)
	return err
}

// Deactivate marks a ticker inactive without deleting its history
func (r *UniverseRepository) Deactivate(ctx context.Context, ticker string) error {
	query := `UPDATE data.tickers SET is_active = false WHERE ticker = $1`

	_, err := r.pool.Exec(ctx, query, ticker)
	return err
}
