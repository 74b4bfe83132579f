package stats

import "github.com/shopspring/decimal"

// WhaleConcentration returns the share of total weight, in percent, held by
// the WhaleCount largest holders. A zero total gives 0.
func WhaleConcentration(weights []float64) float64 {
	return topShare(toDecimals(weights), WhaleCount)
}

// TopShare returns the percentage of total weight held by the n largest holders.
// Fewer than n holders are all counted.
func TopShare(weights []float64, n int) float64 {
	return topShare(toDecimals(weights), n)
}

func topShare(ds []decimal.Decimal, n int) float64 {
	total := sum(ds)
	if !total.IsPositive() || n <= 0 {
		return 0
	}
	sorted := sortedDesc(ds)
	if n > len(sorted) {
		n = len(sorted)
	}
	return sum(sorted[:n]).Div(total).Mul(hundred).InexactFloat64()
}
