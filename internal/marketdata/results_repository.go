package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorlens/internal/contracts"
)

// ResultsRepository implements contracts.ResultsStore over the
// models.results table. One row per (ticker, years, num_factors); a new run
// for the same key overwrites the previous result.
type ResultsRepository struct {
	pool *pgxpool.Pool
}

// NewResultsRepository creates a new results repository
func NewResultsRepository(pool *pgxpool.Pool) *ResultsRepository {
	return &ResultsRepository{pool: pool}
}

// Push upserts a model result under its (ticker, years, num_factors) key
func (r *ResultsRepository) Push(ctx context.Context, result *contracts.ModelResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal model result: %w", err)
	}

	query := `
		INSERT INTO models.results (ticker, years, num_factors, model_name, result, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (ticker, years, num_factors) DO UPDATE SET
			model_name = EXCLUDED.model_name,
			result = EXCLUDED.result,
			updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		result.Ticker, result.Years(), result.NumFactors(), result.ModelName, payload,
	)
	return err
}

// Get retrieves the stored result for a key, or nil when none exists
func (r *ResultsRepository) Get(ctx context.Context, ticker string, years, numFactors int) (*contracts.ModelResult, error) {
	query := `
		SELECT result
		FROM models.results
		WHERE ticker = $1 AND years = $2 AND num_factors = $3
	`

	var payload []byte
	err := r.pool.QueryRow(ctx, query, ticker, years, numFactors).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result contracts.ModelResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal model result: %w", err)
	}
	return &result, nil
}

// ListByTicker retrieves every stored result for a ticker, newest first
func (r *ResultsRepository) ListByTicker(ctx context.Context, ticker string) ([]*contracts.ModelResult, error) {
	query := `
		SELECT result
		FROM models.results
		WHERE ticker = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*contracts.ModelResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var result contracts.ModelResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("unmarshal model result: %w", err)
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}
