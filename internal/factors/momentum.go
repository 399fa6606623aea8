package factors

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/timeseries"
)

// minRankedStocks is the smallest cross-section a momentum formation may rank.
// Below this the winner/loser split is too noisy to use and the month is
// skipped.
const minRankedStocks = 10

// momentumLookbackDays extends the price panel before the estimation window
// so the first formations have a full year of prior-return history
const momentumLookbackDays = 365

// Momentum builds the winner-minus-loser factor over [start, end].
// At each month-end formation date t the prior return over [t-12m, t-1m]
// ranks the universe; stocks at or above the 70th percentile are winners,
// at or below the 30th are losers. The factor for the following month
// [t, t+1m-1d] is the equal-weighted winner return minus the loser return.
// Months with fewer than 10 ranked stocks are skipped; overlapping dates
// from adjacent formations are averaged.
func (e *Engine) Momentum(ctx context.Context, start, end time.Time) (timeseries.Series, error) {
	tickers, err := e.universe.All(ctx)
	if err != nil {
		return timeseries.Series{}, &contracts.ExternalProviderError{Provider: "universe", Err: err}
	}

	panelStart := start.AddDate(0, 0, -momentumLookbackDays)
	bars, err := e.prices.BatchHistory(ctx, tickers, panelStart, end)
	if err != nil {
		return timeseries.Series{}, &contracts.ExternalProviderError{Provider: "prices", Err: err}
	}

	panel := make(map[string]timeseries.Series, len(tickers))
	panelMin := time.Time{}
	for _, ticker := range tickers {
		s := CloseSeries(bars[ticker])
		if s.Empty() {
			continue
		}
		panel[ticker] = s
		if first, _, ok := s.First(); ok && (panelMin.IsZero() || first.Before(panelMin)) {
			panelMin = first
		}
	}
	if len(panel) == 0 {
		return timeseries.Series{}, &contracts.InsufficientDataError{
			Reason: "no price history for momentum universe",
		}
	}

	var monthly []timeseries.Series
	for _, formation := range monthEnds(start, end) {
		windowStart := formation.AddDate(-1, 0, 0)
		if windowStart.Before(panelMin) {
			// Not enough history yet for a 12-month ranking window
			continue
		}

		prior := priorReturns(panel, windowStart, formation.AddDate(0, -1, 0))
		if len(prior) < minRankedStocks {
			e.logger.WithError(&contracts.InsufficientPortfolioSizeError{
				FormationDate: formation,
				Ranked:        len(prior),
				Minimum:       minRankedStocks,
			}).Warn("Skipping momentum formation")
			continue
		}

		winners, losers := rankWinnersLosers(prior)

		holdEnd := formation.AddDate(0, 1, 0).AddDate(0, 0, -1)
		if holdEnd.After(end) {
			holdEnd = end
		}
		winnerRet := holdingReturns(panel, winners, formation, holdEnd)
		loserRet := holdingReturns(panel, losers, formation, holdEnd)
		if winnerRet.Empty() || loserRet.Empty() {
			continue
		}

		monthly = append(monthly, winnerRet.Sub(loserRet))
	}

	if len(monthly) == 0 {
		return timeseries.Series{}, &contracts.InsufficientDataError{
			Reason: "no momentum formations with sufficient history",
		}
	}

	mom := timeseries.ConcatAveraging(monthly)
	e.logger.WithFields(map[string]interface{}{
		"formations":   len(monthly),
		"observations": mom.Len(),
	}).Debug("Constructed momentum factor")
	return mom, nil
}

// monthEnds lists the last calendar day of each month from the month
// containing start up to (but not including) the month containing end.
// The final month is excluded since its holding period would be empty.
func monthEnds(start, end time.Time) []time.Time {
	var out []time.Time
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for {
		monthEnd := cursor.AddDate(0, 1, 0).AddDate(0, 0, -1)
		if !monthEnd.Before(end) {
			break
		}
		if !monthEnd.Before(start) {
			out = append(out, monthEnd)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}

// priorReturns computes each ticker's simple return between its first and
// last observation inside [from, to]. Tickers with fewer than two
// observations in the window are dropped.
func priorReturns(panel map[string]timeseries.Series, from, to time.Time) map[string]float64 {
	out := make(map[string]float64)
	for ticker, s := range panel {
		window := s.Slice(from, to)
		if window.Len() < 2 {
			continue
		}
		first := window.Values()[0]
		last := window.Values()[window.Len()-1]
		if first == 0 {
			continue
		}
		out[ticker] = last/first - 1
	}
	return out
}

// rankWinnersLosers splits the ranked cross-section at the 30th and 70th
// percentiles of prior return
func rankWinnersLosers(prior map[string]float64) (winners, losers []string) {
	values := make([]float64, 0, len(prior))
	for _, v := range prior {
		values = append(values, v)
	}
	hi := timeseries.Quantile(values, 0.7)
	lo := timeseries.Quantile(values, 0.3)

	for ticker, v := range prior {
		switch {
		case v >= hi:
			winners = append(winners, ticker)
		case v <= lo:
			losers = append(losers, ticker)
		}
	}
	sort.Strings(winners)
	sort.Strings(losers)
	return winners, losers
}

// holdingReturns is the equal-weighted daily return of the named tickers over
// the holding window
func holdingReturns(panel map[string]timeseries.Series, tickers []string, from, to time.Time) timeseries.Series {
	group := make([]timeseries.Series, 0, len(tickers))
	for _, ticker := range tickers {
		r := panel[ticker].Slice(from, to).PctChange()
		if r.Empty() {
			continue
		}
		group = append(group, r)
	}
	return timeseries.MeanAcross(group)
}
