package cmd

import (
	"testing"
	"time"

	"github.com/kerbaras/stonkers/pkg/wheel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldingsFrame(t *testing.T) {
	f := holdingsFrame([]wheel.Holding{
		{Symbol: "XYZ", Right: "S", Quantity: 100, MarketPrice: 50, AveragePrice: 40, Value: 5000, Cost: 4000, Profit: 1000, ProfitPercent: 0.25},
		{
			Symbol:        "XYZ_020521C45",
			Right:         "C",
			Quantity:      -1,
			MarketPrice:   1,
			AveragePrice:  2,
			Value:         -100,
			Cost:          -200,
			Profit:        100,
			ProfitPercent: 0.5,
			Strike:        45,
			Expiration:    time.Date(2021, 2, 5, 0, 0, 0, 0, time.UTC),
			DTE:           31,
			ITM:           true,
		},
	})

	require.Len(t, f.Rows, 2)
	assert.Len(t, f.Columns, 13)

	shares := f.Rows[0]
	assert.Equal(t, "XYZ", shares[0])
	assert.Equal(t, "100", shares[2])
	assert.Equal(t, "$50.00", shares[3])
	assert.Equal(t, "25.00%", shares[8])
	assert.Equal(t, "", shares[9])

	call := f.Rows[1]
	assert.Equal(t, "C", call[1])
	assert.Equal(t, "$45.00", call[9])
	assert.Equal(t, "2021-02-05", call[10])
	assert.Equal(t, 31, call[11])
	assert.Equal(t, "✔", call[12])
}

func TestTickersOf(t *testing.T) {
	wheels := []*wheel.Wheel{
		wheel.New("1", wheel.DefaultConfig("XYZ"), nil, nil),
		wheel.New("1", wheel.DefaultConfig("ABC"), nil, nil),
	}
	assert.Equal(t, []string{"XYZ", "ABC"}, tickersOf(wheels))
}
