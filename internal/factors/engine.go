package factors

import (
	"context"
	"time"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/timeseries"
	"github.com/wonny/factorlens/pkg/logger"
)

// Engine computes cross-sectional characteristics at formation dates, forms
// double-sorted benchmark portfolios and derives the long/short factor
// return series. One instance is safe for a single orchestration session;
// it holds no mutable state of its own.
type Engine struct {
	prices       contracts.PriceSeriesProvider
	fundamentals contracts.FundamentalsProvider
	universe     contracts.TickerUniverseProvider
	logger       *logger.Logger
}

// NewEngine creates a factor construction engine
func NewEngine(
	prices contracts.PriceSeriesProvider,
	fundamentals contracts.FundamentalsProvider,
	universe contracts.TickerUniverseProvider,
	log *logger.Logger,
) *Engine {
	return &Engine{
		prices:       prices,
		fundamentals: fundamentals,
		universe:     universe,
		logger:       log.WithComponent("factors"),
	}
}

// ValueFactorSet holds the factor series derived from one formation date
type ValueFactorSet struct {
	SMB timeseries.Series
	HML timeseries.Series
	RMW timeseries.Series
	CMA timeseries.Series
}

// FactorSelection names which double sorts to run. A caller that already
// holds the value factors from an earlier model can request only the
// profitability and investment sorts.
type FactorSelection struct {
	Value         bool // SMB and HML
	Profitability bool // RMW
	Investment    bool // CMA
}

// Any reports whether at least one sort is selected
func (s FactorSelection) Any() bool {
	return s.Value || s.Profitability || s.Investment
}

// ComputeValueFactors builds SMB and HML from the size/value double sort at
// the formation date, with portfolio returns over [start, end]
func (e *Engine) ComputeValueFactors(ctx context.Context, formationDate, start, end time.Time) (smb, hml timeseries.Series, err error) {
	set, err := e.ComputeSortedFactors(ctx, formationDate, start, end, FactorSelection{Value: true})
	if err != nil {
		return timeseries.Series{}, timeseries.Series{}, err
	}
	return set.SMB, set.HML, nil
}

// ComputeFiveFactorSet builds SMB, HML, RMW and CMA from the three double
// sorts at the formation date
func (e *Engine) ComputeFiveFactorSet(ctx context.Context, formationDate, start, end time.Time) (*ValueFactorSet, error) {
	return e.ComputeSortedFactors(ctx, formationDate, start, end, FactorSelection{
		Value:         true,
		Profitability: true,
		Investment:    true,
	})
}

// ComputeSortedFactors runs the selected double sorts at the formation date.
// The sorts share one market-cap cross-section; each characteristic forms its
// own portfolios and breakpoints. Unselected factors are left as empty series.
func (e *Engine) ComputeSortedFactors(ctx context.Context, formationDate, start, end time.Time, sel FactorSelection) (*ValueFactorSet, error) {
	caps, bookToMarket, err := e.MarketCapBookToMarket(ctx, formationDate)
	if err != nil {
		return nil, err
	}

	set := &ValueFactorSet{}
	if sel.Value {
		returns, err := e.PortfolioReturns(ctx, FormPortfolios(caps, bookToMarket, ValueBuckets), start, end)
		if err != nil {
			return nil, err
		}
		set.SMB, set.HML = SMB(returns), HML(returns)
	}
	if sel.Profitability {
		profitability, err := e.Profitability(ctx, formationDate)
		if err != nil {
			return nil, err
		}
		returns, err := e.PortfolioReturns(ctx, FormPortfolios(caps, profitability, ProfitabilityBuckets), start, end)
		if err != nil {
			return nil, err
		}
		set.RMW = RMW(returns)
	}
	if sel.Investment {
		investment, err := e.Investment(ctx, formationDate)
		if err != nil {
			return nil, err
		}
		returns, err := e.PortfolioReturns(ctx, FormPortfolios(caps, investment, InvestmentBuckets), start, end)
		if err != nil {
			return nil, err
		}
		set.CMA = CMA(returns)
	}
	return set, nil
}

// PortfolioReturns computes the equal-weighted daily return series of each
// portfolio over [start, end]. Portfolios whose members have no price data
// are omitted from the result, not zero-filled.
func (e *Engine) PortfolioReturns(ctx context.Context, portfolios []Portfolio, start, end time.Time) (map[string]timeseries.Series, error) {
	returns := make(map[string]timeseries.Series, len(portfolios))

	for _, p := range portfolios {
		if len(p.Tickers) == 0 {
			continue
		}

		bars, err := e.prices.BatchHistory(ctx, p.Tickers, start, end)
		if err != nil {
			return nil, &contracts.ExternalProviderError{Provider: "prices", Err: err}
		}

		memberReturns := make([]timeseries.Series, 0, len(p.Tickers))
		for _, ticker := range p.Tickers {
			s := CloseSeries(bars[ticker]).PctChange()
			if s.Empty() {
				continue
			}
			memberReturns = append(memberReturns, s)
		}
		if len(memberReturns) == 0 {
			e.logger.WithField("portfolio", p.Label).Warn("No price data for portfolio, omitting")
			continue
		}

		returns[p.Label] = timeseries.MeanAcross(memberReturns)
	}

	e.logger.WithFields(map[string]interface{}{
		"portfolios": len(portfolios),
		"with_data":  len(returns),
	}).Debug("Calculated portfolio returns")

	return returns, nil
}
