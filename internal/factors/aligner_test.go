package factors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/timeseries"
)

func priceSeries(start time.Time, prices ...float64) timeseries.Series {
	dates := make([]time.Time, len(prices))
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return timeseries.New(dates, prices)
}

func TestAlignReturns(t *testing.T) {
	start := utc(2024, 1, 1)
	asset := priceSeries(start, 100, 101, 102, 103, 104)
	market := priceSeries(start, 400, 404, 408, 412, 416)
	// One monthly rate observation, annualized percent
	rf := timeseries.New([]time.Time{start}, []float64{2.52})

	table, err := AlignReturns(asset, market, rf)
	require.NoError(t, err)

	// First row is dropped by the return conversion
	require.Equal(t, 4, table.NumObs())
	assert.Equal(t, start.AddDate(0, 0, 1), table.Dates[0])

	// 2.52% annual -> 0.0001 daily
	daily := 2.52 / 100 / 252
	assert.InDelta(t, daily, table.RiskFree[0], 1e-15)
	assert.InDelta(t, daily, table.LatestRiskFree(), 1e-15)

	assert.InDelta(t, 0.01, table.Asset[0], 1e-12)
	assert.InDelta(t, 0.01, table.Market[0], 1e-12)
	assert.InDelta(t, 0.01-daily, table.AssetExcess[0], 1e-12)
	assert.InDelta(t, 0.01-daily, table.MarketExcess[0], 1e-12)
}

func TestAlignReturns_InnerJoin(t *testing.T) {
	start := utc(2024, 1, 1)
	asset := priceSeries(start, 100, 101, 102, 103)
	// Market missing Jan 3
	market := timeseries.New(
		[]time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 3)},
		[]float64{400, 404, 412},
	)
	rf := timeseries.New([]time.Time{start}, []float64{0})

	table, err := AlignReturns(asset, market, rf)
	require.NoError(t, err)

	require.Equal(t, 2, table.NumObs())
	assert.Equal(t, start.AddDate(0, 0, 1), table.Dates[0])
	assert.Equal(t, start.AddDate(0, 0, 3), table.Dates[1])
}

func TestAlignReturns_InsufficientOverlap(t *testing.T) {
	asset := priceSeries(utc(2024, 1, 1), 100, 101, 102)
	market := priceSeries(utc(2025, 6, 1), 400, 404, 408)
	rf := timeseries.New([]time.Time{utc(2024, 1, 1)}, []float64{2.0})

	_, err := AlignReturns(asset, market, rf)
	require.Error(t, err)

	var insufficientErr *contracts.InsufficientDataError
	assert.ErrorAs(t, err, &insufficientErr)
}

func TestMergeFactors(t *testing.T) {
	start := utc(2024, 1, 1)
	asset := priceSeries(start, 100, 101, 102, 103, 104)
	market := priceSeries(start, 400, 404, 408, 412, 416)
	rf := timeseries.New([]time.Time{start}, []float64{0})

	table, err := AlignReturns(asset, market, rf)
	require.NoError(t, err)
	require.Equal(t, 4, table.NumObs())

	// SMB missing the last table date
	smb := timeseries.New(
		[]time.Time{start.AddDate(0, 0, 1), start.AddDate(0, 0, 2), start.AddDate(0, 0, 3)},
		[]float64{0.001, 0.002, 0.003},
	)

	merged := table.MergeFactors(map[contracts.FactorName]timeseries.Series{
		contracts.FactorSMB: smb,
	})

	require.Equal(t, 3, merged.NumObs())
	col, ok := merged.Column(contracts.FactorSMB)
	require.True(t, ok)
	assert.Equal(t, []float64{0.001, 0.002, 0.003}, col)

	// Receiver is unchanged
	assert.Equal(t, 4, table.NumObs())
}

func TestColumn_MarketMapsToExcess(t *testing.T) {
	start := utc(2024, 1, 1)
	asset := priceSeries(start, 100, 101, 102)
	market := priceSeries(start, 400, 404, 408)
	rf := timeseries.New([]time.Time{start}, []float64{0})

	table, err := AlignReturns(asset, market, rf)
	require.NoError(t, err)

	col, ok := table.Column(contracts.FactorMarket)
	require.True(t, ok)
	assert.Equal(t, table.MarketExcess, col)

	_, ok = table.Column(contracts.FactorMOM)
	assert.False(t, ok)
}

func TestFactorMeans(t *testing.T) {
	start := utc(2024, 1, 1)
	asset := priceSeries(start, 100, 101, 102, 103)
	market := priceSeries(start, 400, 404, 408, 412)
	rf := timeseries.New([]time.Time{start}, []float64{0})

	table, err := AlignReturns(asset, market, rf)
	require.NoError(t, err)

	means := table.FactorMeans([]contracts.FactorName{contracts.FactorMarket})
	require.Contains(t, means, contracts.FactorMarket)
	assert.InDelta(t, mean(table.MarketExcess), means[contracts.FactorMarket], 1e-15)
}

func TestDailyRiskFree_ForwardFill(t *testing.T) {
	// Monthly rate observations onto a daily calendar spanning the change
	rates := timeseries.New(
		[]time.Time{utc(2024, 1, 1), utc(2024, 2, 1)},
		[]float64{2.52, 5.04},
	)
	calendar := []time.Time{
		utc(2024, 1, 15),
		utc(2024, 1, 31),
		utc(2024, 2, 2),
	}

	daily := DailyRiskFree(rates, calendar)
	require.Equal(t, 3, daily.Len())
	assert.InDelta(t, 2.52/100/252, daily.Values()[0], 1e-15)
	assert.InDelta(t, 2.52/100/252, daily.Values()[1], 1e-15)
	assert.InDelta(t, 5.04/100/252, daily.Values()[2], 1e-15)
}
