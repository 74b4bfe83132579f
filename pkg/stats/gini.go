package stats

import "github.com/shopspring/decimal"

// Gini returns the Gini coefficient of weights in [0, 1).
//
// With values sorted ascending and 1-indexed rank i:
//
//	G = 2·Σ(i·v_i) / (n·Σv_i) − (n+1)/n
//
// Empty input and a zero total give 0.
func Gini(weights []float64) float64 {
	return gini(toDecimals(weights))
}

func gini(ds []decimal.Decimal) float64 {
	n := len(ds)
	if n == 0 {
		return 0
	}

	numerator := decimal.Zero
	denominator := decimal.Zero
	for i, d := range sortedAsc(ds) {
		numerator = numerator.Add(decimal.NewFromInt(int64(i + 1)).Mul(d))
		denominator = denominator.Add(d)
	}
	if denominator.IsZero() {
		return 0
	}

	bigN := decimal.NewFromInt(int64(n))
	g := two.Mul(numerator).Div(bigN.Mul(denominator)).
		Sub(bigN.Add(decimal.NewFromInt(1)).Div(bigN))

	// rounding in the two divisions can leave a tiny negative residue for equal weights
	if g.IsNegative() {
		return 0
	}
	return g.InexactFloat64()
}
