package contracts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// FactorName identifies a regression factor column
type FactorName string

const (
	FactorMarket FactorName = "Market_Excess"
	FactorSMB    FactorName = "SMB"
	FactorHML    FactorName = "HML"
	FactorRMW    FactorName = "RMW"
	FactorCMA    FactorName = "CMA"
	FactorMOM    FactorName = "MOM"
)

// ModelVariant identifies one of the supported asset-pricing models
type ModelVariant string

const (
	CAPM        ModelVariant = "capm"
	ThreeFactor ModelVariant = "three_factor"
	FourFactor  ModelVariant = "four_factor"
	FiveFactor  ModelVariant = "five_factor"
	SixFactor   ModelVariant = "six_factor"
)

// AllVariants lists the model variants in increasing factor count
var AllVariants = []ModelVariant{CAPM, ThreeFactor, FourFactor, FiveFactor, SixFactor}

// Name returns the published model name
func (v ModelVariant) Name() string {
	switch v {
	case CAPM:
		return "CAPM"
	case ThreeFactor:
		return "Fama-French Three-Factor"
	case FourFactor:
		return "Carhart Four-Factor"
	case FiveFactor:
		return "Fama-French Five-Factor"
	case SixFactor:
		return "Fama-French Six-Factor"
	default:
		return string(v)
	}
}

// Factors returns the regression factor set for the variant, market first
func (v ModelVariant) Factors() []FactorName {
	switch v {
	case CAPM:
		return []FactorName{FactorMarket}
	case ThreeFactor:
		return []FactorName{FactorMarket, FactorSMB, FactorHML}
	case FourFactor:
		return []FactorName{FactorMarket, FactorSMB, FactorHML, FactorMOM}
	case FiveFactor:
		return []FactorName{FactorMarket, FactorSMB, FactorHML, FactorRMW, FactorCMA}
	case SixFactor:
		return []FactorName{FactorMarket, FactorSMB, FactorHML, FactorRMW, FactorCMA, FactorMOM}
	default:
		return nil
	}
}

// NumFactors returns the number of regression factors
func (v ModelVariant) NumFactors() int {
	return len(v.Factors())
}

// ParseVariant resolves a variant from a CLI/API string
func ParseVariant(s string) (ModelVariant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "capm", "1", "one":
		return CAPM, nil
	case "three_factor", "3", "three":
		return ThreeFactor, nil
	case "four_factor", "4", "four":
		return FourFactor, nil
	case "five_factor", "5", "five":
		return FiveFactor, nil
	case "six_factor", "6", "six":
		return SixFactor, nil
	default:
		return "", fmt.Errorf("unknown model variant %q", s)
	}
}

// RegressionResult holds an OLS fit of asset excess returns on a factor set
type RegressionResult struct {
	Intercept       float64                `json:"intercept"`
	InterceptPValue float64                `json:"intercept_p_value"`
	Betas           map[FactorName]float64 `json:"betas"`
	PValues         map[FactorName]float64 `json:"p_values"`
	NumObs          int                    `json:"num_obs"`
	RSquared        float64                `json:"r_squared"`
	ResidualStdErr  float64                `json:"residual_std_err"`
}

// ModelResult is the persisted outcome of one model variant run for a ticker
// over a date window. Immutable once created.
type ModelResult struct {
	Ticker              string                 `json:"ticker"`
	ModelName           string                 `json:"model_name"`
	MarketIndex         string                 `json:"market_index"`
	StartDate           time.Time              `json:"start_date"`
	EndDate             time.Time              `json:"end_date"`
	Betas               map[FactorName]float64 `json:"betas"`
	PValues             map[FactorName]float64 `json:"p_values"`
	FactorMeans         map[FactorName]float64 `json:"factor_means"`
	ExpectedReturn      float64                `json:"expected_return"`       // daily decimal
	RiskFreeRate        float64                `json:"risk_free_rate"`        // latest daily decimal
	AverageMarketReturn float64                `json:"average_market_return"` // daily decimal
}

// NumFactors returns the number of regression factors in the result
func (r *ModelResult) NumFactors() int {
	return len(r.Betas)
}

// Years returns the window length rounded to whole years, at least 1.
// Results are persisted keyed by (ticker, Years, NumFactors).
func (r *ModelResult) Years() int {
	days := r.EndDate.Sub(r.StartDate).Hours() / 24
	years := int(math.Round(days / 365))
	if years < 1 {
		years = 1
	}
	return years
}

// annualize converts a daily decimal rate to an annualized percentage
func annualize(daily float64) float64 {
	return daily * 100 * 252
}

// Summary renders a human-readable report with annualized percentages
func (r *ModelResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Results for %s:\n", r.ModelName, r.Ticker)
	fmt.Fprintf(&b, "Expected Return: %.4f%%\n", annualize(r.ExpectedReturn))
	fmt.Fprintf(&b, "Average Market Return (%s): %.4f%%\n", r.MarketIndex, annualize(r.AverageMarketReturn))
	fmt.Fprintf(&b, "Risk-Free Rate: %.4f%%\n", annualize(r.RiskFreeRate))

	names := make([]string, 0, len(r.Betas))
	for name := range r.Betas {
		names = append(names, string(name))
	}
	sort.Strings(names)

	b.WriteString("\nBetas:\n")
	for _, name := range names {
		factor := FactorName(name)
		fmt.Fprintf(&b, "  %s: %.4f, p: %.12f\n", name, r.Betas[factor], r.PValues[factor])
	}
	return b.String()
}
