package factors

import (
	"fmt"
	"sort"

	"github.com/wonny/factorlens/internal/timeseries"
)

// Portfolio is one cell of a double sort: a size bucket crossed with a
// characteristic bucket. Immutable once formed for a formation date.
type Portfolio struct {
	Label   string // e.g. "Small/High"
	Tickers []string
}

// Bucket labels per characteristic. Breakpoints are always the 30th and 70th
// percentiles; only the naming differs.
var (
	ValueBuckets         = [3]string{"Low", "Medium", "High"}
	ProfitabilityBuckets = [3]string{"Weak", "Neutral", "Robust"}
	InvestmentBuckets    = [3]string{"Conservative", "Neutral", "Aggressive"}
)

// sizeLabels for the market-cap median split
var sizeLabels = [2]string{"Small", "Big"}

// FormPortfolios double-sorts the cross-section: a market-cap median split
// crossed with characteristic terciles (<=30th pct, 30th-70th, >70th).
// Only tickers present in both maps enter the sort; breakpoints are computed
// on that joint cross-section and never reused across formation dates.
// Returns the six portfolios, some possibly empty.
func FormPortfolios(marketCaps, characteristic map[string]float64, buckets [3]string) []Portfolio {
	tickers := make([]string, 0, len(marketCaps))
	for ticker := range marketCaps {
		if _, ok := characteristic[ticker]; ok {
			tickers = append(tickers, ticker)
		}
	}
	sort.Strings(tickers)

	caps := make([]float64, len(tickers))
	chars := make([]float64, len(tickers))
	for i, ticker := range tickers {
		caps[i] = marketCaps[ticker]
		chars[i] = characteristic[ticker]
	}

	sizeMedian := timeseries.Median(caps)
	c30 := timeseries.Quantile(chars, 0.3)
	c70 := timeseries.Quantile(chars, 0.7)

	members := make(map[string][]string, 6)
	for i, ticker := range tickers {
		size := sizeLabels[0]
		if caps[i] > sizeMedian {
			size = sizeLabels[1]
		}

		bucket := buckets[0]
		switch {
		case chars[i] > c70:
			bucket = buckets[2]
		case chars[i] > c30:
			bucket = buckets[1]
		}

		label := size + "/" + bucket
		members[label] = append(members[label], ticker)
	}

	portfolios := make([]Portfolio, 0, 6)
	for _, size := range sizeLabels {
		for _, bucket := range buckets {
			label := size + "/" + bucket
			portfolios = append(portfolios, Portfolio{
				Label:   label,
				Tickers: members[label],
			})
		}
	}
	return portfolios
}

// smbLabels are the portfolios entering each side of the size factor;
// the size effect is isolated by averaging over the value buckets
func smbLabels(buckets [3]string) (small, big []string) {
	for _, b := range buckets {
		small = append(small, "Small/"+b)
		big = append(big, "Big/"+b)
	}
	return small, big
}

// longShort computes mean(long portfolios) - mean(short portfolios) per date
func longShort(returns map[string]timeseries.Series, long, short []string) timeseries.Series {
	return meanOf(returns, long).Sub(meanOf(returns, short))
}

// meanOf averages the return series of the named portfolios, skipping labels
// without data
func meanOf(returns map[string]timeseries.Series, labels []string) timeseries.Series {
	group := make([]timeseries.Series, 0, len(labels))
	for _, label := range labels {
		if s, ok := returns[label]; ok && !s.Empty() {
			group = append(group, s)
		}
	}
	return timeseries.MeanAcross(group)
}

// SMB computes the size factor from the value-sorted portfolio returns:
// mean of the three Small portfolios minus mean of the three Big ones
func SMB(valueReturns map[string]timeseries.Series) timeseries.Series {
	small, big := smbLabels(ValueBuckets)
	return longShort(valueReturns, small, big)
}

// HML computes the value factor: high book-to-market minus low
func HML(valueReturns map[string]timeseries.Series) timeseries.Series {
	return longShort(valueReturns,
		[]string{"Small/High", "Big/High"},
		[]string{"Small/Low", "Big/Low"},
	)
}

// RMW computes the profitability factor: robust minus weak
func RMW(profitabilityReturns map[string]timeseries.Series) timeseries.Series {
	return longShort(profitabilityReturns,
		[]string{"Small/Robust", "Big/Robust"},
		[]string{"Small/Weak", "Big/Weak"},
	)
}

// CMA computes the investment factor: conservative minus aggressive
func CMA(investmentReturns map[string]timeseries.Series) timeseries.Series {
	return longShort(investmentReturns,
		[]string{"Small/Conservative", "Big/Conservative"},
		[]string{"Small/Aggressive", "Big/Aggressive"},
	)
}

// String implements fmt.Stringer for logging
func (p Portfolio) String() string {
	return fmt.Sprintf("%s(%d)", p.Label, len(p.Tickers))
}
