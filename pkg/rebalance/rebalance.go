// Package rebalance computes share purchases toward target allocations.
package rebalance

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Rebalance returns how many whole shares of each symbol to buy with funds
// so holdings approach the target allocations. allocations are fractions of
// the portfolio, portfolio holds current share counts and prices the price of
// each symbol.
func Rebalance(allocations map[string]float64, funds float64, portfolio, prices map[string]float64) map[string]int {
	symbols := make([]string, 0, len(allocations))
	for s := range allocations {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	alloc := make([]float64, len(symbols))
	held := make([]float64, len(symbols))
	price := make([]float64, len(symbols))
	for i, s := range symbols {
		alloc[i] = allocations[s]
		held[i] = portfolio[s]
		price[i] = prices[s]
	}

	naive := naiveShares(alloc, funds, price)

	if floats.Dot(held, price) > 0 {
		buy := greedyShares(alloc, funds, held, price)
		cost := floats.Dot(buy, price)
		if cost > 0 && funds-cost > 0 {
			return toMap(symbols, buy)
		}
	}

	return toMap(symbols, naive)
}

// naiveShares splits funds by allocation, buying at least one share of every
// symbol with a fractional target.
func naiveShares(alloc []float64, funds float64, price []float64) []float64 {
	shares := make([]float64, len(alloc))
	for i := range alloc {
		if price[i] <= 0 {
			continue
		}
		s := alloc[i] * funds / price[i]
		if s < 1 {
			s = math.Ceil(s)
		}
		shares[i] = math.Floor(s)
	}
	return shares
}

// greedyShares buys one share at a time of the symbol furthest below its
// allocation that funds can still cover.
func greedyShares(alloc []float64, funds float64, held, price []float64) []float64 {
	buy := make([]float64, len(alloc))
	total := make([]float64, len(alloc))
	values := make([]float64, len(alloc))
	remaining := funds

	for {
		floats.AddTo(total, held, buy)
		floats.MulTo(values, total, price)
		sum := floats.Sum(values)

		best := -1
		bestGap := math.Inf(-1)
		for i := range alloc {
			if price[i] <= 0 || price[i] > remaining {
				continue
			}
			gap := alloc[i]
			if sum > 0 {
				gap -= values[i] / sum
			}
			if gap > bestGap {
				best, bestGap = i, gap
			}
		}
		if best < 0 {
			return buy
		}

		buy[best]++
		remaining -= price[best]
	}
}

func toMap(symbols []string, shares []float64) map[string]int {
	out := make(map[string]int, len(symbols))
	for i, s := range symbols {
		out[s] = int(shares[i])
	}
	return out
}
