package factors

import (
	"context"
	"time"

	"github.com/wonny/factorlens/internal/contracts"
)

// priceLookback is how far back to search for a trading day at or before the
// formation date. Three months clears any exchange holiday stretch.
const priceLookback = 90

// MarketCapBookToMarket computes market cap and book-to-market for every
// ticker in the universe as of the formation date. Uses the most recent
// annual balance sheet dated on or before the formation date and the last
// close at or before it. Tickers missing either input are skipped, not
// zero-filled.
func (e *Engine) MarketCapBookToMarket(ctx context.Context, formationDate time.Time) (caps, bookToMarket map[string]float64, err error) {
	tickers, err := e.universe.All(ctx)
	if err != nil {
		return nil, nil, &contracts.ExternalProviderError{Provider: "universe", Err: err}
	}

	caps = make(map[string]float64)
	bookToMarket = make(map[string]float64)

	for _, ticker := range tickers {
		records, err := e.fundamentals.Query(ctx, ticker, contracts.PeriodAnnual, contracts.ReportBalanceSheet)
		if err != nil {
			return nil, nil, &contracts.ExternalProviderError{Provider: "fundamentals", Err: err}
		}
		record := contracts.LatestAsOf(records, formationDate)
		if record == nil {
			e.skip(ticker, "no balance sheet at formation date")
			continue
		}
		shares, ok := record.Shares()
		if !ok || shares == 0 {
			e.skip(ticker, "missing shares outstanding")
			continue
		}
		equity, ok := record.Equity()
		if !ok {
			e.skip(ticker, "missing stockholders equity")
			continue
		}

		price, ok := e.priceAt(ctx, ticker, formationDate)
		if !ok {
			e.skip(ticker, "no price at formation date")
			continue
		}

		cap := price * shares
		if cap == 0 {
			e.skip(ticker, "zero market cap")
			continue
		}
		caps[ticker] = cap
		bookToMarket[ticker] = equity / cap
	}

	e.logger.WithFields(map[string]interface{}{
		"formation_date": formationDate.Format("2006-01-02"),
		"universe":       len(tickers),
		"cross_section":  len(caps),
	}).Debug("Computed market cap and book-to-market")

	return caps, bookToMarket, nil
}

// Profitability computes operating profitability as of the formation date:
// (revenue - COGS - SG&A - interest) / stockholders' equity, with the most
// recent annual income statement and balance sheet on or before the date.
// Interest expense defaults to zero when not reported; revenue, COGS, SG&A
// and equity are required.
func (e *Engine) Profitability(ctx context.Context, formationDate time.Time) (map[string]float64, error) {
	tickers, err := e.universe.All(ctx)
	if err != nil {
		return nil, &contracts.ExternalProviderError{Provider: "universe", Err: err}
	}

	out := make(map[string]float64)
	for _, ticker := range tickers {
		income, err := e.fundamentals.Query(ctx, ticker, contracts.PeriodAnnual, contracts.ReportIncome)
		if err != nil {
			return nil, &contracts.ExternalProviderError{Provider: "fundamentals", Err: err}
		}
		balance, err := e.fundamentals.Query(ctx, ticker, contracts.PeriodAnnual, contracts.ReportBalanceSheet)
		if err != nil {
			return nil, &contracts.ExternalProviderError{Provider: "fundamentals", Err: err}
		}

		ir := contracts.LatestAsOf(income, formationDate)
		br := contracts.LatestAsOf(balance, formationDate)
		if ir == nil || br == nil {
			e.skip(ticker, "no statements at formation date")
			continue
		}

		revenue, okRev := ir.Revenue()
		cogs, okCOGS := ir.COGS()
		sga, okSGA := ir.SGA()
		if !okRev || !okCOGS || !okSGA {
			e.skip(ticker, "missing income statement line items")
			continue
		}
		interest, _ := ir.Interest() // absent means zero

		equity, ok := br.Equity()
		if !ok || equity == 0 {
			e.skip(ticker, "missing or zero equity")
			continue
		}

		out[ticker] = (revenue - cogs - sga - interest) / equity
	}

	e.logger.WithFields(map[string]interface{}{
		"formation_date": formationDate.Format("2006-01-02"),
		"cross_section":  len(out),
	}).Debug("Computed profitability")

	return out, nil
}

// Investment computes asset growth as of the formation date:
// (assets_t - assets_{t-1y}) / assets_{t-1y}, where the two snapshots are the
// most recent annual balance sheets on or before the formation date and one
// year earlier. Tickers without both snapshots are skipped.
func (e *Engine) Investment(ctx context.Context, formationDate time.Time) (map[string]float64, error) {
	tickers, err := e.universe.All(ctx)
	if err != nil {
		return nil, &contracts.ExternalProviderError{Provider: "universe", Err: err}
	}
	priorDate := formationDate.AddDate(-1, 0, 0)

	out := make(map[string]float64)
	for _, ticker := range tickers {
		records, err := e.fundamentals.Query(ctx, ticker, contracts.PeriodAnnual, contracts.ReportBalanceSheet)
		if err != nil {
			return nil, &contracts.ExternalProviderError{Provider: "fundamentals", Err: err}
		}

		current := contracts.LatestAsOf(records, formationDate)
		prior := contracts.LatestAsOf(records, priorDate)
		if current == nil || prior == nil || !current.AsOfDate.After(prior.AsOfDate) {
			e.skip(ticker, "fewer than two annual balance sheets")
			continue
		}

		assetsNow, okNow := current.Assets()
		assetsPrior, okPrior := prior.Assets()
		if !okNow || !okPrior || assetsPrior == 0 {
			e.skip(ticker, "missing or zero total assets")
			continue
		}

		out[ticker] = (assetsNow - assetsPrior) / assetsPrior
	}

	e.logger.WithFields(map[string]interface{}{
		"formation_date": formationDate.Format("2006-01-02"),
		"cross_section":  len(out),
	}).Debug("Computed asset growth")

	return out, nil
}

// priceAt returns the last close at or before the given date, searching back
// over the lookback window
func (e *Engine) priceAt(ctx context.Context, ticker string, date time.Time) (float64, bool) {
	bars, err := e.prices.History(ctx, ticker, date.AddDate(0, 0, -priceLookback), date)
	if err != nil || len(bars) == 0 {
		return 0, false
	}
	price, ok := CloseSeries(bars).AtOrBefore(date)
	return price, ok
}

func (e *Engine) skip(ticker, reason string) {
	e.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"reason": reason,
	}).Debug("Excluding ticker from cross-section")
}
