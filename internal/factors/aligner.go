package factors

import (
	"time"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/timeseries"
)

// tradingDaysPerYear converts annualized percent rates to daily decimals
const tradingDaysPerYear = 252

// ReturnTable is the aligned daily table the regression runs on. Every row
// carries a complete set of values; rows with any missing column were dropped
// during alignment.
type ReturnTable struct {
	Dates        []time.Time
	Asset        []float64
	Market       []float64
	RiskFree     []float64
	AssetExcess  []float64
	MarketExcess []float64
	Factors      map[contracts.FactorName][]float64
}

// CloseSeries extracts the close prices from price bars as a daily series
func CloseSeries(bars []contracts.PriceBar) timeseries.Series {
	dates := make([]time.Time, len(bars))
	values := make([]float64, len(bars))
	for i, bar := range bars {
		dates[i] = bar.Date
		values[i] = bar.Close
	}
	return timeseries.New(dates, values)
}

// RateSeries converts rate observations to a series of annualized percents
func RateSeries(points []contracts.RatePoint) timeseries.Series {
	dates := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		dates[i] = p.Date
		values[i] = p.Value
	}
	return timeseries.New(dates, values)
}

// DailyRiskFree converts an annualized percent rate series to daily decimal
// rates forward-filled onto the given trading calendar
func DailyRiskFree(annualPct timeseries.Series, calendar []time.Time) timeseries.Series {
	return annualPct.ForwardFillTo(calendar).Scale(1.0 / 100 / tradingDaysPerYear)
}

// AlignReturns converts price levels to simple returns, joins asset, market
// and risk-free series on their common daily calendar and computes excess
// returns. The risk-free input is the raw annualized percent series; it is
// forward-filled to the asset calendar before conversion. Fails with
// InsufficientDataError when fewer than 2 overlapping observations remain.
func AlignReturns(assetPrices, marketPrices, riskFreeAnnualPct timeseries.Series) (*ReturnTable, error) {
	assetReturns := assetPrices.PctChange()
	marketReturns := marketPrices.PctChange()
	riskFree := DailyRiskFree(riskFreeAnnualPct, assetPrices.Dates())

	t := &ReturnTable{Factors: make(map[contracts.FactorName][]float64)}
	for i, d := range assetReturns.Dates() {
		market, ok := marketReturns.At(d)
		if !ok {
			continue
		}
		rf, ok := riskFree.At(d)
		if !ok {
			continue
		}
		asset := assetReturns.Values()[i]

		t.Dates = append(t.Dates, d)
		t.Asset = append(t.Asset, asset)
		t.Market = append(t.Market, market)
		t.RiskFree = append(t.RiskFree, rf)
		t.AssetExcess = append(t.AssetExcess, asset-rf)
		t.MarketExcess = append(t.MarketExcess, market-rf)
	}

	if len(t.Dates) < 2 {
		return nil, &contracts.InsufficientDataError{
			Reason:       "fewer than 2 overlapping return observations",
			Observations: len(t.Dates),
		}
	}
	return t, nil
}

// NumObs returns the number of aligned rows
func (t *ReturnTable) NumObs() int {
	return len(t.Dates)
}

// LatestRiskFree returns the most recent daily risk-free rate in the table
func (t *ReturnTable) LatestRiskFree() float64 {
	if len(t.RiskFree) == 0 {
		return 0
	}
	return t.RiskFree[len(t.RiskFree)-1]
}

// AverageMarketReturn returns the mean raw market return over the table
func (t *ReturnTable) AverageMarketReturn() float64 {
	return mean(t.Market)
}

// Column returns the values for a factor column. The market factor maps to
// the market excess column; every other factor must have been merged first.
func (t *ReturnTable) Column(name contracts.FactorName) ([]float64, bool) {
	if name == contracts.FactorMarket {
		return t.MarketExcess, true
	}
	col, ok := t.Factors[name]
	return col, ok
}

// MergeFactors inner-joins factor series onto the table, dropping rows where
// any factor has no observation. The receiver is unchanged.
func (t *ReturnTable) MergeFactors(series map[contracts.FactorName]timeseries.Series) *ReturnTable {
	merged := &ReturnTable{Factors: make(map[contracts.FactorName][]float64)}
	for name := range series {
		merged.Factors[name] = nil
	}

	for i, d := range t.Dates {
		row := make(map[contracts.FactorName]float64, len(series))
		complete := true
		for name, s := range series {
			v, ok := s.At(d)
			if !ok {
				complete = false
				break
			}
			row[name] = v
		}
		if !complete {
			continue
		}

		merged.Dates = append(merged.Dates, d)
		merged.Asset = append(merged.Asset, t.Asset[i])
		merged.Market = append(merged.Market, t.Market[i])
		merged.RiskFree = append(merged.RiskFree, t.RiskFree[i])
		merged.AssetExcess = append(merged.AssetExcess, t.AssetExcess[i])
		merged.MarketExcess = append(merged.MarketExcess, t.MarketExcess[i])
		for name, v := range row {
			merged.Factors[name] = append(merged.Factors[name], v)
		}
	}
	return merged
}

// FactorMeans returns the mean of each requested factor column
func (t *ReturnTable) FactorMeans(names []contracts.FactorName) map[contracts.FactorName]float64 {
	means := make(map[contracts.FactorName]float64, len(names))
	for _, name := range names {
		if col, ok := t.Column(name); ok {
			means[name] = mean(col)
		}
	}
	return means
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
