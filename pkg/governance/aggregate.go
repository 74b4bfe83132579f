package governance

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// aggregate sums voting power per voter across proposals. Sums are exact, so
// the result does not depend on the order votes are added in.
type aggregate struct {
	power map[string]decimal.Decimal
}

func newAggregate() *aggregate {
	return &aggregate{power: make(map[string]decimal.Decimal)}
}

func (a *aggregate) add(voter string, vp float64) {
	if voter == "" {
		return
	}
	cur, ok := a.power[voter]
	if !ok {
		cur = decimal.Zero
	}
	if vp > 0 && !math.IsInf(vp, 1) {
		cur = cur.Add(decimal.NewFromFloat(vp))
	}
	a.power[voter] = cur
}

// weights returns per-voter totals ordered by voter address.
func (a *aggregate) weights() []float64 {
	voters := make([]string, 0, len(a.power))
	for v := range a.power {
		voters = append(voters, v)
	}
	sort.Strings(voters)

	out := make([]float64, 0, len(voters))
	for _, v := range voters {
		out = append(out, a.power[v].InexactFloat64())
	}
	return out
}
