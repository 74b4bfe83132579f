// Package stats computes decentralization metrics over voting-power distributions.
//
// All functions are pure: they never mutate their input, accept unsorted data and
// return a zero value for degenerate inputs (empty list or zero total weight).
// Arithmetic is carried out with arbitrary-precision decimals so results do not
// depend on the order in which weights are supplied.
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// WhaleCount is how many of the largest holders are treated as whales.
const WhaleCount = 10

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Summary bundles every metric derived from one weight distribution.
type Summary struct {
	Count              int
	TotalWeight        float64
	Nakamoto           int
	Gini               float64
	WhaleConcentration float64
}

// Summarize runs every calculator over weights.
func Summarize(weights []float64) Summary {
	ds := toDecimals(weights)
	return Summary{
		Count:              len(ds),
		TotalWeight:        sum(ds).InexactFloat64(),
		Nakamoto:           nakamoto(ds),
		Gini:               gini(ds),
		WhaleConcentration: topShare(ds, WhaleCount),
	}
}

// Total returns the exact sum of weights as a float64.
func Total(weights []float64) float64 {
	return sum(toDecimals(weights)).InexactFloat64()
}

// toDecimals copies weights into decimals. Negative, NaN and infinite values
// carry no voting power and become zero.
func toDecimals(weights []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			out[i] = decimal.Zero
			continue
		}
		out[i] = decimal.NewFromFloat(w)
	}
	return out
}

func sum(ds []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}

func sortedDesc(ds []decimal.Decimal) []decimal.Decimal {
	out := append([]decimal.Decimal(nil), ds...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].GreaterThan(out[j]) })
	return out
}

func sortedAsc(ds []decimal.Decimal) []decimal.Decimal {
	out := append([]decimal.Decimal(nil), ds...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}
