package models

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/factors"
	"github.com/wonny/factorlens/internal/regression"
	"github.com/wonny/factorlens/internal/timeseries"
	"github.com/wonny/factorlens/pkg/logger"
)

// Orchestrator runs model variants for one session, caching the aligned
// return tables and constructed factor series so that estimating several
// variants over the same window reuses the shared inputs. Not safe for
// concurrent use; the batch runner creates one per ticker.
type Orchestrator struct {
	prices      contracts.PriceSeriesProvider
	rates       contracts.RiskFreeRateProvider
	engine      *factors.Engine
	logger      *logger.Logger
	marketIndex string
	rfSeries    string

	baseTables map[string]*factors.ReturnTable
	factorMemo map[string]timeseries.Series
}

// NewOrchestrator creates a model orchestrator for one estimation session
func NewOrchestrator(
	prices contracts.PriceSeriesProvider,
	rates contracts.RiskFreeRateProvider,
	engine *factors.Engine,
	marketIndex, rfSeries string,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		prices:      prices,
		rates:       rates,
		engine:      engine,
		logger:      log.WithComponent("models"),
		marketIndex: marketIndex,
		rfSeries:    rfSeries,
		baseTables:  make(map[string]*factors.ReturnTable),
		factorMemo:  make(map[string]timeseries.Series),
	}
}

// Run estimates one model variant for a ticker over [start, end]
func (o *Orchestrator) Run(ctx context.Context, ticker string, variant contracts.ModelVariant, start, end time.Time) (*contracts.ModelResult, error) {
	table, err := o.baseTable(ctx, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("align returns for %s: %w", ticker, err)
	}

	factorNames := variant.Factors()
	series, err := o.factorSeries(ctx, factorNames, start, end)
	if err != nil {
		return nil, fmt.Errorf("construct factors for %s: %w", variant.Name(), err)
	}
	if len(series) > 0 {
		table = table.MergeFactors(series)
	}

	fit, err := regression.Fit(table, factorNames)
	if err != nil {
		return nil, fmt.Errorf("fit %s for %s: %w", variant.Name(), ticker, err)
	}

	riskFree := table.LatestRiskFree()
	means := table.FactorMeans(factorNames)

	result := &contracts.ModelResult{
		Ticker:              ticker,
		ModelName:           variant.Name(),
		MarketIndex:         o.marketIndex,
		StartDate:           start,
		EndDate:             end,
		Betas:               fit.Betas,
		PValues:             fit.PValues,
		FactorMeans:         means,
		ExpectedReturn:      ExpectedReturn(riskFree, fit.Betas, means),
		RiskFreeRate:        riskFree,
		AverageMarketReturn: table.AverageMarketReturn(),
	}

	o.logger.WithFields(map[string]interface{}{
		"ticker":          ticker,
		"model":           variant.Name(),
		"observations":    fit.NumObs,
		"r_squared":       fit.RSquared,
		"expected_return": result.ExpectedReturn,
	}).Info("Model estimated")

	return result, nil
}

// RunAll estimates every requested variant, continuing past per-variant
// failures. Returns the successful results and the errors keyed by variant.
func (o *Orchestrator) RunAll(ctx context.Context, ticker string, variants []contracts.ModelVariant, start, end time.Time) ([]*contracts.ModelResult, map[contracts.ModelVariant]error) {
	results := make([]*contracts.ModelResult, 0, len(variants))
	errs := make(map[contracts.ModelVariant]error)

	for _, variant := range variants {
		result, err := o.Run(ctx, ticker, variant, start, end)
		if err != nil {
			o.logger.WithError(err).WithFields(map[string]interface{}{
				"ticker": ticker,
				"model":  variant.Name(),
			}).Warn("Model variant failed")
			errs[variant] = err
			continue
		}
		results = append(results, result)
	}
	return results, errs
}

// baseTable aligns asset, market and risk-free returns, memoized per window
func (o *Orchestrator) baseTable(ctx context.Context, ticker string, start, end time.Time) (*factors.ReturnTable, error) {
	key := memoKey(ticker, start, end)
	if table, ok := o.baseTables[key]; ok {
		return table, nil
	}

	assetBars, err := o.prices.History(ctx, ticker, start, end)
	if err != nil {
		return nil, &contracts.ExternalProviderError{Provider: "prices", Err: err}
	}
	if len(assetBars) == 0 {
		return nil, &contracts.MissingDataError{Ticker: ticker, What: "price"}
	}
	marketBars, err := o.prices.History(ctx, o.marketIndex, start, end)
	if err != nil {
		return nil, &contracts.ExternalProviderError{Provider: "prices", Err: err}
	}
	if len(marketBars) == 0 {
		return nil, &contracts.MissingDataError{Ticker: o.marketIndex, What: "price"}
	}
	ratePoints, err := o.rates.Series(ctx, o.rfSeries, start, end)
	if err != nil {
		return nil, &contracts.ExternalProviderError{Provider: "rates", Err: err}
	}
	if len(ratePoints) == 0 {
		return nil, &contracts.MissingDataError{Ticker: o.rfSeries, What: "risk-free rate"}
	}

	table, err := factors.AlignReturns(
		factors.CloseSeries(assetBars),
		factors.CloseSeries(marketBars),
		factors.RateSeries(ratePoints),
	)
	if err != nil {
		return nil, err
	}

	o.baseTables[key] = table
	return table, nil
}

// factorSeries constructs the non-market factor series the variant needs,
// memoized per factor and window. The value and profitability sorts form
// portfolios at June 30 of the window's first year.
func (o *Orchestrator) factorSeries(ctx context.Context, names []contracts.FactorName, start, end time.Time) (map[contracts.FactorName]timeseries.Series, error) {
	needed := make(map[contracts.FactorName]bool, len(names))
	for _, name := range names {
		if name != contracts.FactorMarket {
			needed[name] = true
		}
	}
	if len(needed) == 0 {
		return nil, nil
	}

	out := make(map[contracts.FactorName]timeseries.Series, len(needed))
	missing := make([]contracts.FactorName, 0, len(needed))
	for name := range needed {
		if s, ok := o.factorMemo[memoKey(string(name), start, end)]; ok {
			out[name] = s
		} else {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	// The double sorts run together off one cap cross-section, so collect
	// the missing factors into a single selection. Factors cached by an
	// earlier variant in the session stay cached.
	var sel factors.FactorSelection
	wantMomentum := false
	for _, name := range missing {
		switch name {
		case contracts.FactorSMB, contracts.FactorHML:
			sel.Value = true
		case contracts.FactorRMW:
			sel.Profitability = true
		case contracts.FactorCMA:
			sel.Investment = true
		case contracts.FactorMOM:
			wantMomentum = true
		}
	}

	if sel.Any() {
		set, err := o.engine.ComputeSortedFactors(ctx, formationDate(start), start, end, sel)
		if err != nil {
			return nil, err
		}
		if sel.Value {
			o.memoize(contracts.FactorSMB, start, end, set.SMB)
			o.memoize(contracts.FactorHML, start, end, set.HML)
		}
		if sel.Profitability {
			o.memoize(contracts.FactorRMW, start, end, set.RMW)
		}
		if sel.Investment {
			o.memoize(contracts.FactorCMA, start, end, set.CMA)
		}
	}
	if wantMomentum {
		mom, err := o.engine.Momentum(ctx, start, end)
		if err != nil {
			return nil, err
		}
		o.memoize(contracts.FactorMOM, start, end, mom)
	}

	for name := range needed {
		s, ok := o.factorMemo[memoKey(string(name), start, end)]
		if !ok {
			return nil, fmt.Errorf("factor %s not constructed", name)
		}
		out[name] = s
	}
	return out, nil
}

func (o *Orchestrator) memoize(name contracts.FactorName, start, end time.Time, s timeseries.Series) {
	o.factorMemo[memoKey(string(name), start, end)] = s
}

func memoKey(name string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", name, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// formationDate is June 30 of the estimation window's first year, the annual
// rebalance date of the size and value sorts
func formationDate(start time.Time) time.Time {
	return time.Date(start.Year(), time.June, 30, 0, 0, 0, 0, time.UTC)
}
