package orders

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{1, "1.00"},
		{1.234, "1.23"},
		{1.236, "1.24"},
		{0.5, "0.50"},
		{123.4, "123.40"},
		{1.25 * 0.5, "0.62"},
		{0.375, "0.38"},
		{0.635, "0.64"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.price), "price %v", tt.price)
	}
}

func TestOptionSellToOpenLimit(t *testing.T) {
	got := OptionSellToOpenLimit("GME_011521P100", 2, 1.256).Build()

	want := Order{
		Session:           SessionNormal,
		Duration:          DurationDay,
		OrderType:         TypeLimit,
		Price:             "1.26",
		OrderStrategyType: StrategySingle,
		OrderLegCollection: []Leg{{
			Instruction: SellToOpen,
			Quantity:    2,
			Instrument:  Instrument{Symbol: "GME_011521P100", AssetType: "OPTION"},
		}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestEquityBuyMarket(t *testing.T) {
	got := EquityBuyMarket("VTI", 10).Build()

	assert.Equal(t, TypeMarket, got.OrderType)
	assert.Empty(t, got.Price)
	require.Len(t, got.OrderLegCollection, 1)
	assert.Equal(t, Buy, got.OrderLegCollection[0].Instruction)
	assert.Equal(t, "EQUITY", got.OrderLegCollection[0].Instrument.AssetType)
}

func TestTriggerOrderJSON(t *testing.T) {
	buy := OptionBuyToCloseLimit("GME_011521P100", 1, 0.5).Duration(DurationGoodTillCancel)
	order := OptionSellToOpenLimit("GME_011521P100", 1, 1).
		StrategyType(StrategyTrigger).
		ChildStrategy(buy).
		Build()

	b, err := json.Marshal(order)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"session": "NORMAL",
		"duration": "DAY",
		"orderType": "LIMIT",
		"price": "1.00",
		"orderStrategyType": "TRIGGER",
		"orderLegCollection": [
			{"instruction": "SELL_TO_OPEN", "quantity": 1, "instrument": {"symbol": "GME_011521P100", "assetType": "OPTION"}}
		],
		"childOrderStrategies": [{
			"session": "NORMAL",
			"duration": "GOOD_TILL_CANCEL",
			"orderType": "LIMIT",
			"price": "0.50",
			"orderStrategyType": "SINGLE",
			"orderLegCollection": [
				{"instruction": "BUY_TO_CLOSE", "quantity": 1, "instrument": {"symbol": "GME_011521P100", "assetType": "OPTION"}}
			]
		}]
	}`, string(b))
}

func TestBuildReturnsIndependentCopies(t *testing.T) {
	b := OptionSellToOpenLimit("GME_011521P100", 1, 1)
	first := b.Build()
	b.OptionLeg(SellToOpen, "GME_011521C200", 1)
	second := b.Build()

	assert.Len(t, first.OrderLegCollection, 1)
	assert.Len(t, second.OrderLegCollection, 2)
}

func TestDescribe(t *testing.T) {
	buy := OptionBuyToCloseLimit("GME_011521P100", 2, 0.6).Duration(DurationGoodTillCancel)
	order := OptionSellToOpenLimit("GME_011521P100", 2, 1.2).
		StrategyType(StrategyTrigger).
		ChildStrategy(buy).
		Build()

	want := "Sell To Open 2 x GME Jan 15, 2021 $100 Put @ $1.20 Limit Day\n" +
		"  Buy To Close 2 x GME Jan 15, 2021 $100 Put @ $0.60 Limit Good Till Cancel"
	assert.Equal(t, want, Describe(order))
}

func TestDescribeLegEquity(t *testing.T) {
	leg := Leg{Instruction: Buy, Quantity: 5, Instrument: Instrument{Symbol: "VTI", AssetType: "EQUITY"}}
	assert.Equal(t, "Buy 5 x VTI", DescribeLeg(leg))
}
