package timeseries

import "sort"

// Quantile returns the q-quantile (0 <= q <= 1) of xs using linear
// interpolation between order statistics at position q*(n-1). This matches
// the convention the breakpoint definitions are stated in, which gonum's
// empirical quantile kinds do not reproduce exactly.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Median returns the 0.5-quantile
func Median(xs []float64) float64 {
	return Quantile(xs, 0.5)
}
