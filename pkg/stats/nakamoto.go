package stats

import "github.com/shopspring/decimal"

// Nakamoto returns the minimum number of the largest holders whose combined
// weight strictly exceeds half of the total. Empty input and a zero total give 0.
func Nakamoto(weights []float64) int {
	return nakamoto(toDecimals(weights))
}

func nakamoto(ds []decimal.Decimal) int {
	total := sum(ds)
	if !total.IsPositive() {
		return 0
	}
	threshold := total.Div(two)

	cumulative := decimal.Zero
	for i, d := range sortedDesc(ds) {
		cumulative = cumulative.Add(d)
		if cumulative.GreaterThan(threshold) {
			return i + 1
		}
	}
	// unreachable with a positive total, the full sum always exceeds half of it
	return len(ds)
}
