package factors

import (
	"context"
	"time"

	"github.com/wonny/factorlens/internal/contracts"
)

// stubPrices serves canned price bars per ticker and counts calls
type stubPrices struct {
	bars       map[string][]contracts.PriceBar
	batchCalls int
}

func (s *stubPrices) History(_ context.Context, ticker string, start, end time.Time) ([]contracts.PriceBar, error) {
	return clipBars(s.bars[ticker], start, end), nil
}

func (s *stubPrices) BatchHistory(_ context.Context, tickers []string, start, end time.Time) (map[string][]contracts.PriceBar, error) {
	s.batchCalls++
	out := make(map[string][]contracts.PriceBar, len(tickers))
	for _, t := range tickers {
		out[t] = clipBars(s.bars[t], start, end)
	}
	return out, nil
}

func clipBars(bars []contracts.PriceBar, start, end time.Time) []contracts.PriceBar {
	var out []contracts.PriceBar
	for _, b := range bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// stubFundamentals serves canned records keyed by ticker/period/report
type stubFundamentals struct {
	records map[string][]contracts.FundamentalRecord
}

func fundKey(ticker string, pt contracts.PeriodType, rt contracts.ReportType) string {
	return ticker + "|" + string(pt) + "|" + string(rt)
}

func (s *stubFundamentals) Query(_ context.Context, ticker string, pt contracts.PeriodType, rt contracts.ReportType) ([]contracts.FundamentalRecord, error) {
	return s.records[fundKey(ticker, pt, rt)], nil
}

// stubUniverse serves a fixed ticker list
type stubUniverse struct {
	tickers []string
}

func (s *stubUniverse) All(_ context.Context) ([]string, error) {
	return s.tickers, nil
}

func ptr(v float64) *float64 { return &v }

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailyBars builds n consecutive daily bars starting at base price with a
// constant daily growth rate
func dailyBars(ticker string, start time.Time, n int, base, dailyGrowth float64) []contracts.PriceBar {
	bars := make([]contracts.PriceBar, n)
	price := base
	for i := range bars {
		bars[i] = contracts.PriceBar{
			Ticker: ticker,
			Date:   start.AddDate(0, 0, i),
			Close:  price,
		}
		price *= 1 + dailyGrowth
	}
	return bars
}

func balanceSheet(ticker string, asOf time.Time, shares, equity, assets float64) contracts.FundamentalRecord {
	return contracts.FundamentalRecord{
		Ticker:             ticker,
		AsOfDate:           asOf,
		PeriodType:         contracts.PeriodAnnual,
		ReportType:         contracts.ReportBalanceSheet,
		SharesOutstanding:  ptr(shares),
		StockholdersEquity: ptr(equity),
		TotalAssets:        ptr(assets),
	}
}

func incomeStatement(ticker string, asOf time.Time, revenue, cogs, sga float64, interest *float64) contracts.FundamentalRecord {
	return contracts.FundamentalRecord{
		Ticker:                 ticker,
		AsOfDate:               asOf,
		PeriodType:             contracts.PeriodAnnual,
		ReportType:             contracts.ReportIncome,
		TotalRevenue:           ptr(revenue),
		CostOfRevenue:          ptr(cogs),
		SellingGeneralAndAdmin: ptr(sga),
		InterestExpense:        interest,
	}
}
