// Package regression fits asset excess returns on factor columns by ordinary
// least squares with an intercept, reporting coefficient estimates and
// two-sided t-test p-values.
package regression

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/factors"
)

// Fit regresses the table's asset excess returns on the named factor columns.
// The design matrix always carries an intercept. Requires at least k+2
// observations for k factors so the residual has positive degrees of freedom;
// a rank-deficient design fails with RegressionDegenerateError.
func Fit(table *factors.ReturnTable, factorNames []contracts.FactorName) (*contracts.RegressionResult, error) {
	n := table.NumObs()
	k := len(factorNames)
	if n < k+2 {
		return nil, &contracts.RegressionDegenerateError{
			Reason:       "too few observations for factor count",
			Observations: n,
			Factors:      k,
		}
	}

	cols := k + 1
	x := mat.NewDense(n, cols, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}
	for j, name := range factorNames {
		col, ok := table.Column(name)
		if !ok {
			return nil, &contracts.RegressionDegenerateError{
				Reason:       "factor column " + string(name) + " not merged into table",
				Observations: n,
				Factors:      k,
			}
		}
		for i := 0; i < n; i++ {
			x.Set(i, j+1, col[i])
		}
	}
	y := mat.NewVecDense(n, append([]float64(nil), table.AssetExcess...))

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, &contracts.RegressionDegenerateError{
			Reason:       "design matrix factorization failed",
			Observations: n,
			Factors:      k,
		}
	}
	if rank := svd.Rank(rankTolerance(&svd)); rank < cols {
		return nil, &contracts.RegressionDegenerateError{
			Reason:       "rank-deficient design matrix",
			Observations: n,
			Factors:      k,
		}
	}

	var coef mat.VecDense
	if err := coef.SolveVec(x, y); err != nil {
		return nil, &contracts.RegressionDegenerateError{
			Reason:       "least squares solve failed: " + err.Error(),
			Observations: n,
			Factors:      k,
		}
	}

	// Residual variance and coefficient covariance
	var fitted mat.VecDense
	fitted.MulVec(x, &coef)

	var ssr, sst float64
	yMean := mat.Sum(y) / float64(n)
	for i := 0; i < n; i++ {
		resid := y.AtVec(i) - fitted.AtVec(i)
		ssr += resid * resid
		dev := y.AtVec(i) - yMean
		sst += dev * dev
	}

	dof := float64(n - cols)
	sigma2 := ssr / dof

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, &contracts.RegressionDegenerateError{
			Reason:       "normal equations not invertible",
			Observations: n,
			Factors:      k,
		}
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
	pValue := func(j int) float64 {
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		if se == 0 {
			return 0
		}
		t := coef.AtVec(j) / se
		return 2 * (1 - tDist.CDF(math.Abs(t)))
	}

	result := &contracts.RegressionResult{
		Intercept:       coef.AtVec(0),
		InterceptPValue: pValue(0),
		Betas:           make(map[contracts.FactorName]float64, k),
		PValues:         make(map[contracts.FactorName]float64, k),
		NumObs:          n,
		ResidualStdErr:  math.Sqrt(sigma2),
	}
	if sst > 0 {
		result.RSquared = 1 - ssr/sst
	}
	for j, name := range factorNames {
		result.Betas[name] = coef.AtVec(j + 1)
		result.PValues[name] = pValue(j + 1)
	}
	return result, nil
}

// rankTolerance mirrors the usual numerical-rank cutoff:
// eps * max(m, n) * largest singular value
func rankTolerance(svd *mat.SVD) float64 {
	values := svd.Values(nil)
	if len(values) == 0 {
		return 0
	}
	return values[0] * float64(len(values)) * 1e-15
}

// MarketBeta is the single-factor slope cov(asset, market) / var(market),
// kept as a cheap cross-check against the full CAPM fit
func MarketBeta(assetExcess, marketExcess []float64) float64 {
	n := len(marketExcess)
	if n < 2 || len(assetExcess) != n {
		return math.NaN()
	}
	var assetMean, marketMean float64
	for i := 0; i < n; i++ {
		assetMean += assetExcess[i]
		marketMean += marketExcess[i]
	}
	assetMean /= float64(n)
	marketMean /= float64(n)

	var cov, variance float64
	for i := 0; i < n; i++ {
		cov += (assetExcess[i] - assetMean) * (marketExcess[i] - marketMean)
		variance += (marketExcess[i] - marketMean) * (marketExcess[i] - marketMean)
	}
	if variance == 0 {
		return math.NaN()
	}
	return cov / variance
}
