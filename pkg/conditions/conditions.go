// Package conditions filters and ranks option contracts.
package conditions

import (
	"math"
	"sort"

	"github.com/kerbaras/stonkers/pkg/data"
)

type Condition func(*data.OptionContract) bool

// RateOfReturn is the premium collected relative to the capital at risk.
func RateOfReturn(o *data.OptionContract) float64 {
	price := o.Price()
	return price / (o.StrikePrice - price)
}

func RateOfReturnAbove(value float64) Condition {
	return func(o *data.OptionContract) bool {
		return RateOfReturn(o) > value
	}
}

func MinimumPrice(value float64) Condition {
	return func(o *data.OptionContract) bool {
		return o.Mark > value
	}
}

func MaximumPrice(value float64) Condition {
	return func(o *data.OptionContract) bool {
		return o.Mark < value
	}
}

func OpenInterest(value int) Condition {
	return func(o *data.OptionContract) bool {
		return o.OpenInterest > value
	}
}

func TotalVolume(value int) Condition {
	return func(o *data.OptionContract) bool {
		return o.TotalVolume > value
	}
}

// DaysToExpiration keeps contracts expiring within [min, max] days.
func DaysToExpiration(min, max int) Condition {
	return func(o *data.OptionContract) bool {
		return o.DaysToExpiration >= min && o.DaysToExpiration <= max
	}
}

func Spread(value float64) Condition {
	return func(o *data.OptionContract) bool {
		return o.Ask-o.Bid < value
	}
}

func ExcludeInTheMoney() Condition {
	return func(o *data.OptionContract) bool {
		return !o.InTheMoney
	}
}

// Delta keeps contracts whose delta is within tolerance of target. With
// ignoreNegative set, puts are compared by absolute delta.
func Delta(target, tolerance float64, ignoreNegative bool) Condition {
	return func(o *data.OptionContract) bool {
		d := o.Delta
		if ignoreNegative {
			d = math.Abs(d)
		}
		return math.Abs(d-target) <= tolerance+1e-5*math.Abs(target)
	}
}

func IntrinsicValue(min float64) Condition {
	return func(o *data.OptionContract) bool {
		return o.IntrinsicValue >= min
	}
}

func Liquidity(minBidSize, minAskSize int) Condition {
	return func(o *data.OptionContract) bool {
		return o.BidSize >= minBidSize && o.AskSize >= minAskSize
	}
}

func IsCall() Condition {
	return func(o *data.OptionContract) bool { return o.IsCall() }
}

func IsPut() Condition {
	return func(o *data.OptionContract) bool { return o.IsPut() }
}

// All reports whether o meets every condition.
func All(o *data.OptionContract, conds ...Condition) bool {
	for _, c := range conds {
		if !c(o) {
			return false
		}
	}
	return true
}

func Default() []Condition {
	return []Condition{
		DaysToExpiration(7, 60),
		Spread(0.05),
		ExcludeInTheMoney(),
		Delta(0.30, 0.05, true),
	}
}

// Evaluated is a contract that met the conditions.
type Evaluated struct {
	*data.OptionContract
	RoR float64
}

// Evaluate keeps the contracts that meet conds, best rate of return first and
// then soonest expiration. A nil conds applies Default.
func Evaluate(contracts []data.OptionContract, conds []Condition) []Evaluated {
	if conds == nil {
		conds = Default()
	}

	var out []Evaluated
	for i := range contracts {
		o := &contracts[i]
		if All(o, conds...) {
			out = append(out, Evaluated{OptionContract: o, RoR: RateOfReturn(o)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].RoR, out[j].RoR
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case a != b:
			return a > b
		}
		return out[i].ExpirationDate.Before(out[j].ExpirationDate)
	})
	return out
}

// Best returns the top evaluated contract, or nil when none qualifies.
func Best(contracts []data.OptionContract, conds []Condition) *Evaluated {
	evaluated := Evaluate(contracts, conds)
	if len(evaluated) == 0 {
		return nil
	}
	return &evaluated[0]
}
