package factors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/timeseries"
)

func TestFormPortfolios_SixCells(t *testing.T) {
	caps := map[string]float64{
		"A": 10, "B": 20, "C": 30, "D": 40, "E": 50, "F": 60,
	}
	chars := map[string]float64{
		"A": 0.1, "B": 0.9, "C": 0.5, "D": 0.2, "E": 0.8, "F": 0.4,
	}

	portfolios := FormPortfolios(caps, chars, ValueBuckets)
	require.Len(t, portfolios, 6)

	labels := make(map[string][]string, 6)
	total := 0
	for _, p := range portfolios {
		labels[p.Label] = p.Tickers
		total += len(p.Tickers)
	}
	// Every ticker lands in exactly one cell
	assert.Equal(t, 6, total)
	for _, label := range []string{
		"Small/Low", "Small/Medium", "Small/High",
		"Big/Low", "Big/Medium", "Big/High",
	} {
		assert.Contains(t, labels, label)
	}

	// Median of caps is 35: A,B,C small; D,E,F big
	assert.Contains(t, labels["Small/Low"], "A")
	assert.Contains(t, labels["Small/High"], "B")
	assert.Contains(t, labels["Big/High"], "E")
	assert.Contains(t, labels["Big/Low"], "D")
}

func TestFormPortfolios_MedianSplitBalanced(t *testing.T) {
	// With distinct caps the size split differs by at most one either way
	for _, n := range []int{4, 5, 10, 11} {
		caps := make(map[string]float64, n)
		chars := make(map[string]float64, n)
		for i := 0; i < n; i++ {
			ticker := string(rune('A' + i))
			caps[ticker] = float64(i + 1)
			chars[ticker] = float64(n - i)
		}

		var small, big int
		for _, p := range FormPortfolios(caps, chars, ValueBuckets) {
			if p.Label[:5] == "Small" {
				small += len(p.Tickers)
			} else {
				big += len(p.Tickers)
			}
		}
		assert.LessOrEqual(t, abs(small-big), 1, "n=%d", n)
	}
}

func TestFormPortfolios_JointCrossSectionOnly(t *testing.T) {
	caps := map[string]float64{"A": 1, "B": 2, "C": 3}
	chars := map[string]float64{"A": 0.5, "B": 0.6} // C missing

	total := 0
	for _, p := range FormPortfolios(caps, chars, ValueBuckets) {
		assert.NotContains(t, p.Tickers, "C")
		total += len(p.Tickers)
	}
	assert.Equal(t, 2, total)
}

func TestFormPortfolios_Deterministic(t *testing.T) {
	caps := map[string]float64{"X": 5, "A": 1, "M": 3, "B": 2}
	chars := map[string]float64{"X": 0.4, "A": 0.1, "M": 0.3, "B": 0.2}

	first := FormPortfolios(caps, chars, InvestmentBuckets)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FormPortfolios(caps, chars, InvestmentBuckets))
	}
}

func TestFactorAssembly(t *testing.T) {
	day := utc(2024, 1, 2)
	flat := func(v float64) timeseries.Series {
		return timeseries.New([]time.Time{day}, []float64{v})
	}

	valueReturns := map[string]timeseries.Series{
		"Small/Low": flat(0.01), "Small/Medium": flat(0.02), "Small/High": flat(0.03),
		"Big/Low": flat(0.00), "Big/Medium": flat(0.01), "Big/High": flat(0.02),
	}

	smb := SMB(valueReturns)
	require.Equal(t, 1, smb.Len())
	// mean(small)=0.02, mean(big)=0.01
	assert.InDelta(t, 0.01, smb.Values()[0], 1e-12)

	hml := HML(valueReturns)
	require.Equal(t, 1, hml.Len())
	// mean(Small/High, Big/High)=0.025, mean(Small/Low, Big/Low)=0.005
	assert.InDelta(t, 0.02, hml.Values()[0], 1e-12)

	profReturns := map[string]timeseries.Series{
		"Small/Robust": flat(0.04), "Big/Robust": flat(0.02),
		"Small/Weak": flat(0.01), "Big/Weak": flat(0.01),
	}
	rmw := RMW(profReturns)
	require.Equal(t, 1, rmw.Len())
	assert.InDelta(t, 0.02, rmw.Values()[0], 1e-12)

	invReturns := map[string]timeseries.Series{
		"Small/Conservative": flat(0.03), "Big/Conservative": flat(0.01),
		"Small/Aggressive": flat(0.02), "Big/Aggressive": flat(0.00),
	}
	cma := CMA(invReturns)
	require.Equal(t, 1, cma.Len())
	assert.InDelta(t, 0.01, cma.Values()[0], 1e-12)
}

func TestFactorAssembly_MissingPortfolio(t *testing.T) {
	day := utc(2024, 1, 2)
	flat := func(v float64) timeseries.Series {
		return timeseries.New([]time.Time{day}, []float64{v})
	}

	// Big/High has no data: HML long leg falls back to Small/High alone
	valueReturns := map[string]timeseries.Series{
		"Small/High": flat(0.03),
		"Small/Low":  flat(0.01), "Big/Low": flat(0.01),
	}
	hml := HML(valueReturns)
	require.Equal(t, 1, hml.Len())
	assert.InDelta(t, 0.02, hml.Values()[0], 1e-12)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
