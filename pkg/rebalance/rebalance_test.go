package rebalance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebalanceEmptyPortfolioSplitsFunds(t *testing.T) {
	got := Rebalance(
		map[string]float64{"VTI": 0.6, "BND": 0.4},
		1000,
		nil,
		map[string]float64{"VTI": 200, "BND": 80},
	)

	assert.Equal(t, map[string]int{"VTI": 3, "BND": 5}, got)
}

func TestRebalanceBuysAtLeastOneShare(t *testing.T) {
	got := Rebalance(
		map[string]float64{"AMZN": 0.1, "VTI": 0.9},
		1000,
		map[string]float64{},
		map[string]float64{"AMZN": 3000, "VTI": 100},
	)

	assert.Equal(t, 1, got["AMZN"])
	assert.Equal(t, 9, got["VTI"])
}

func TestRebalanceFavoursUnderweightHoldings(t *testing.T) {
	got := Rebalance(
		map[string]float64{"VTI": 0.5, "BND": 0.5},
		1050,
		map[string]float64{"VTI": 20, "BND": 0},
		map[string]float64{"VTI": 100, "BND": 100},
	)

	assert.Equal(t, 0, got["VTI"])
	assert.Equal(t, 10, got["BND"])
}

func TestRebalanceFallsBackWhenFundsAreExhausted(t *testing.T) {
	got := Rebalance(
		map[string]float64{"VTI": 1},
		300,
		map[string]float64{"VTI": 1},
		map[string]float64{"VTI": 100},
	)

	// the greedy pass spends every dollar so the naive split is used
	assert.Equal(t, map[string]int{"VTI": 3}, got)
}

func TestRebalanceIgnoresMissingPrices(t *testing.T) {
	got := Rebalance(
		map[string]float64{"VTI": 0.5, "XYZ": 0.5},
		500,
		nil,
		map[string]float64{"VTI": 100},
	)

	assert.Equal(t, 2, got["VTI"])
	assert.Equal(t, 0, got["XYZ"])
}
