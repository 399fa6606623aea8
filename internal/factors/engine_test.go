package factors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/timeseries"
	"github.com/wonny/factorlens/pkg/logger"
)

func TestPortfolioReturns_EqualWeighted(t *testing.T) {
	start := utc(2024, 1, 1)
	prices := &stubPrices{bars: map[string][]contracts.PriceBar{
		"UP":   dailyBars("UP", start, 5, 100, 0.02),
		"FLAT": dailyBars("FLAT", start, 5, 100, 0),
	}}
	engine := NewEngine(prices, &stubFundamentals{}, &stubUniverse{}, logger.NewNop())

	returns, err := engine.PortfolioReturns(context.Background(), []Portfolio{
		{Label: "Small/High", Tickers: []string{"UP", "FLAT"}},
		{Label: "Big/High", Tickers: nil},
	}, start, start.AddDate(0, 0, 4))
	require.NoError(t, err)

	// Empty portfolios are omitted
	require.Len(t, returns, 1)
	s, ok := returns["Small/High"]
	require.True(t, ok)
	require.Equal(t, 4, s.Len())
	// mean(0.02, 0) each day
	for _, v := range s.Values() {
		assert.InDelta(t, 0.01, v, 1e-12)
	}
}

func TestComputeValueFactors(t *testing.T) {
	formation := utc(2020, 6, 30)
	start := utc(2020, 7, 1)
	end := utc(2020, 7, 31)

	// Six tickers: three small caps, three big; book-to-market spread so
	// every value bucket is populated on each side of the size split
	bars := make(map[string][]contracts.PriceBar)
	records := make(map[string][]contracts.FundamentalRecord)
	spec := []struct {
		ticker string
		price  float64
		shares float64
		equity float64
		growth float64
	}{
		{"SL", 10, 100, 100, 0.010},  // small, low B/M
		{"SM", 10, 110, 550, 0.006},  // small, medium
		{"SH", 10, 120, 1080, 0.002}, // small, high
		{"BL", 50, 200, 1000, 0.009}, // big, low
		{"BM", 50, 210, 5250, 0.005}, // big, medium
		{"BH", 50, 220, 9900, 0.001}, // big, high
	}
	tickers := make([]string, 0, len(spec))
	for _, s := range spec {
		tickers = append(tickers, s.ticker)
		bars[s.ticker] = dailyBars(s.ticker, utc(2020, 6, 1), 70, s.price, s.growth)
		records[fundKey(s.ticker, contracts.PeriodAnnual, contracts.ReportBalanceSheet)] = []contracts.FundamentalRecord{
			balanceSheet(s.ticker, utc(2019, 12, 31), s.shares, s.equity, s.equity*2),
		}
	}

	prices := &stubPrices{bars: bars}
	funds := &stubFundamentals{records: records}
	engine := NewEngine(prices, funds, &stubUniverse{tickers: tickers}, logger.NewNop())

	smb, hml, err := engine.ComputeValueFactors(context.Background(), formation, start, end)
	require.NoError(t, err)
	require.False(t, smb.Empty())
	require.False(t, hml.Empty())

	// Small stocks grow slightly faster on average in this setup, and low
	// B/M stocks grow faster than high, so HML is negative throughout
	for _, v := range hml.Values() {
		assert.Negative(t, v)
	}
}

// fiveFactorEngine builds a twelve-ticker universe where profitability and
// investment follow independent non-monotone patterns of the ticker index,
// so the three double sorts form distinct corner portfolios
func fiveFactorEngine() *Engine {
	bars := make(map[string][]contracts.PriceBar)
	records := make(map[string][]contracts.FundamentalRecord)
	n := 12
	tickers := make([]string, n)
	for i := 0; i < n; i++ {
		ticker := string(rune('A'+i)) + "X"
		tickers[i] = ticker
		bars[ticker] = dailyBars(ticker, utc(2020, 6, 1), 70, 10+float64(i), 0.001*float64(i%4))

		equity := 100 + 50*float64(i)
		assets := 1000 + 10*float64(i)
		records[fundKey(ticker, contracts.PeriodAnnual, contracts.ReportBalanceSheet)] = []contracts.FundamentalRecord{
			balanceSheet(ticker, utc(2018, 12, 31), 100, equity*0.9, assets),
			balanceSheet(ticker, utc(2019, 12, 31), 100, equity, assets+40*float64((3*i+1)%8)),
		}
		records[fundKey(ticker, contracts.PeriodAnnual, contracts.ReportIncome)] = []contracts.FundamentalRecord{
			incomeStatement(ticker, utc(2019, 12, 31), 1000, 300, 100+60*float64((5*i+2)%7), nil),
		}
	}

	prices := &stubPrices{bars: bars}
	funds := &stubFundamentals{records: records}
	return NewEngine(prices, funds, &stubUniverse{tickers: tickers}, logger.NewNop())
}

func TestComputeFiveFactorSet(t *testing.T) {
	formation := utc(2020, 6, 30)
	start := utc(2020, 7, 1)
	end := utc(2020, 7, 31)

	engine := fiveFactorEngine()
	set, err := engine.ComputeFiveFactorSet(context.Background(), formation, start, end)
	require.NoError(t, err)

	for name, s := range map[string]timeseries.Series{
		"SMB": set.SMB, "HML": set.HML, "RMW": set.RMW, "CMA": set.CMA,
	} {
		assert.False(t, s.Empty(), name)
	}

	// The profitability and investment sorts pick different corner
	// portfolios, so their factor series must not coincide
	assert.NotEqual(t, set.RMW.Values(), set.CMA.Values())
}

func TestComputeSortedFactors_SubsetSelection(t *testing.T) {
	formation := utc(2020, 6, 30)
	start := utc(2020, 7, 1)
	end := utc(2020, 7, 31)
	engine := fiveFactorEngine()

	set, err := engine.ComputeSortedFactors(context.Background(), formation, start, end,
		FactorSelection{Value: true})
	require.NoError(t, err)
	assert.False(t, set.SMB.Empty())
	assert.False(t, set.HML.Empty())
	assert.True(t, set.RMW.Empty())
	assert.True(t, set.CMA.Empty())

	set, err = engine.ComputeSortedFactors(context.Background(), formation, start, end,
		FactorSelection{Profitability: true, Investment: true})
	require.NoError(t, err)
	assert.True(t, set.SMB.Empty())
	assert.True(t, set.HML.Empty())
	assert.False(t, set.RMW.Empty())
	assert.False(t, set.CMA.Empty())
}
