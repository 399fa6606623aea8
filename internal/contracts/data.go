package contracts

import "time"

// PriceBar represents one trading day of OHLCV data for a ticker
type PriceBar struct {
	Ticker   string    `json:"ticker"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}

// PeriodType identifies the reporting period of a fundamental record
type PeriodType string

const (
	PeriodQuarterly PeriodType = "quarterly"
	PeriodAnnual    PeriodType = "annual"
	PeriodTTM       PeriodType = "ttm" // trailing twelve months
)

// ReportType identifies which statement a fundamental record comes from
type ReportType string

const (
	ReportBalanceSheet ReportType = "balance_sheet"
	ReportIncome       ReportType = "income"
)

// FundamentalRecord is one reporting period of fundamental line items for a
// ticker. Line items are optional: a nil pointer means the provider did not
// report the field, and callers must treat the value as absent rather than
// zero.
type FundamentalRecord struct {
	Ticker     string     `json:"ticker"`
	AsOfDate   time.Time  `json:"as_of_date"`
	PeriodType PeriodType `json:"period_type"`
	ReportType ReportType `json:"report_type"`

	// Balance sheet
	SharesOutstanding  *float64 `json:"shares_outstanding,omitempty"`
	StockholdersEquity *float64 `json:"stockholders_equity,omitempty"`
	TotalAssets        *float64 `json:"total_assets,omitempty"`

	// Income statement
	TotalRevenue            *float64 `json:"total_revenue,omitempty"`
	CostOfRevenue           *float64 `json:"cost_of_revenue,omitempty"`
	SellingGeneralAndAdmin  *float64 `json:"sga,omitempty"`
	InterestExpense         *float64 `json:"interest_expense,omitempty"`
}

func optional(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Shares returns shares outstanding if reported
func (r *FundamentalRecord) Shares() (float64, bool) { return optional(r.SharesOutstanding) }

// Equity returns stockholders' equity if reported
func (r *FundamentalRecord) Equity() (float64, bool) { return optional(r.StockholdersEquity) }

// Assets returns total assets if reported
func (r *FundamentalRecord) Assets() (float64, bool) { return optional(r.TotalAssets) }

// Revenue returns total revenue if reported
func (r *FundamentalRecord) Revenue() (float64, bool) { return optional(r.TotalRevenue) }

// COGS returns cost of revenue if reported
func (r *FundamentalRecord) COGS() (float64, bool) { return optional(r.CostOfRevenue) }

// SGA returns selling, general and administrative expense if reported
func (r *FundamentalRecord) SGA() (float64, bool) { return optional(r.SellingGeneralAndAdmin) }

// Interest returns interest expense, treating an absent field as zero.
// The second return reports whether the field was present.
func (r *FundamentalRecord) Interest() (float64, bool) {
	if r.InterestExpense == nil {
		return 0, false
	}
	return *r.InterestExpense, true
}

// LatestAsOf returns the most recent record with AsOfDate <= date.
// TTM rows duplicate the latest quarter and are skipped unless the TTM row is
// itself the most recent record available. When several records share the
// same AsOfDate the last one wins. Returns nil when nothing qualifies.
func LatestAsOf(records []FundamentalRecord, date time.Time) *FundamentalRecord {
	var lastNonTTM *FundamentalRecord
	var lastAny *FundamentalRecord

	for i := range records {
		r := &records[i]
		if r.AsOfDate.After(date) {
			continue
		}
		if lastAny == nil || !r.AsOfDate.Before(lastAny.AsOfDate) {
			lastAny = r
		}
		if r.PeriodType == PeriodTTM {
			continue
		}
		if lastNonTTM == nil || !r.AsOfDate.Before(lastNonTTM.AsOfDate) {
			lastNonTTM = r
		}
	}

	// A TTM row only counts when it is the most recent record available
	if lastAny != nil && lastAny.PeriodType == PeriodTTM {
		if lastNonTTM == nil || lastAny.AsOfDate.After(lastNonTTM.AsOfDate) {
			return lastAny
		}
	}
	return lastNonTTM
}

// RatePoint is one observation of an annualized percent rate series
type RatePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"` // annualized percent, e.g. 5.25
}
