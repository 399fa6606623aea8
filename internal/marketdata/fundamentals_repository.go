package marketdata

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorlens/internal/contracts"
)

// FundamentalsRepository implements contracts.FundamentalsProvider over the
// data.fundamentals table. Line-item columns are nullable and surface as nil
// pointers when the filing did not report them.
type FundamentalsRepository struct {
	pool *pgxpool.Pool
}

// NewFundamentalsRepository creates a new fundamentals repository
func NewFundamentalsRepository(pool *pgxpool.Pool) *FundamentalsRepository {
	return &FundamentalsRepository{pool: pool}
}

// Query retrieves fundamental records for a ticker, period and statement,
// ordered by as-of date ascending
func (r *FundamentalsRepository) Query(ctx context.Context, ticker string, periodType contracts.PeriodType, reportType contracts.ReportType) ([]contracts.FundamentalRecord, error) {
	query := `
		SELECT ticker, as_of_date, period_type, report_type,
		       shares_outstanding, stockholders_equity, total_assets,
		       total_revenue, cost_of_revenue, sga_expense, interest_expense
		FROM data.fundamentals
		WHERE ticker = $1 AND period_type = $2 AND report_type = $3
		ORDER BY as_of_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, periodType, reportType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []contracts.FundamentalRecord
	for rows.Next() {
		var rec contracts.FundamentalRecord
		if err := rows.Scan(
			&rec.Ticker, &rec.AsOfDate, &rec.PeriodType, &rec.ReportType,
			&rec.SharesOutstanding, &rec.StockholdersEquity, &rec.TotalAssets,
			&rec.TotalRevenue, &rec.CostOfRevenue, &rec.SellingGeneralAndAdmin, &rec.InterestExpense,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Save upserts a single fundamental record
func (r *FundamentalsRepository) Save(ctx context.Context, rec *contracts.FundamentalRecord) error {
	query := `
		INSERT INTO data.fundamentals (
			ticker, as_of_date, period_type, report_type,
			shares_outstanding, stockholders_equity, total_assets,
			total_revenue, cost_of_revenue, sga_expense, interest_expense
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (ticker, as_of_date, period_type, report_type) DO UPDATE SET
			shares_outstanding = EXCLUDED.shares_outstanding,
			stockholders_equity = EXCLUDED.stockholders_equity,
			total_assets = EXCLUDED.total_assets,
			total_revenue = EXCLUDED.total_revenue,
			cost_of_revenue = EXCLUDED.cost_of_revenue,
			sga_expense = EXCLUDED.sga_expense,
			interest_expense = EXCLUDED.interest_expense
	`

	_, err := r.pool.Exec(ctx, query,
		rec.Ticker, rec.AsOfDate, rec.PeriodType, rec.ReportType,
		rec.SharesOutstanding, rec.StockholdersEquity, rec.TotalAssets,
		rec.TotalRevenue, rec.CostOfRevenue, rec.SellingGeneralAndAdmin, rec.InterestExpense,
	)
	return err
}
