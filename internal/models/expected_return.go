package models

import "github.com/wonny/factorlens/internal/contracts"

// ExpectedReturn computes the daily expected return implied by a fitted
// model: the latest risk-free rate plus each beta times the historical mean
// of its factor over the estimation window. Factors without a mean contribute
// nothing rather than failing; the orchestrator guarantees the maps line up.
func ExpectedReturn(riskFreeLatest float64, betas, factorMeans map[contracts.FactorName]float64) float64 {
	expected := riskFreeLatest
	for name, beta := range betas {
		expected += beta * factorMeans[name]
	}
	return expected
}
