package data

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseTickerEquity(t *testing.T) {
	ticker, err := ParseTicker("GME")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if ticker.AssetType != AssetEquity {
		t.Errorf("Expected asset type EQUITY, got %s", ticker.AssetType)
	}

	if ticker.Underlying != "GME" || ticker.Symbol != "GME" {
		t.Errorf("Expected underlying and symbol GME, got %s/%s", ticker.Underlying, ticker.Symbol)
	}
}

func TestParseTickerOption(t *testing.T) {
	tests := []struct {
		symbol       string
		contractType string
		expiration   string
		strike       float64
	}{
		{"GME_011521P100", ContractPut, "011521", 100},
		{"SPY_031524C512.5", ContractCall, "031524", 512.5},
	}

	for _, tt := range tests {
		ticker, err := ParseTicker(tt.symbol)
		if err != nil {
			t.Fatalf("%s: expected no error, got: %v", tt.symbol, err)
		}

		if ticker.AssetType != AssetOption {
			t.Errorf("%s: expected OPTION, got %s", tt.symbol, ticker.AssetType)
		}
		if ticker.ContractType != tt.contractType {
			t.Errorf("%s: expected %s, got %s", tt.symbol, tt.contractType, ticker.ContractType)
		}
		if ticker.Expiration != tt.expiration {
			t.Errorf("%s: expected expiration %s, got %s", tt.symbol, tt.expiration, ticker.Expiration)
		}
		if ticker.Strike != tt.strike {
			t.Errorf("%s: expected strike %v, got %v", tt.symbol, tt.strike, ticker.Strike)
		}
	}

	ticker, _ := ParseTicker("GME_011521P100")
	exp, err := ticker.ExpirationDate()
	if err != nil {
		t.Fatalf("Failed to parse expiration: %v", err)
	}
	if !exp.Equal(time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected expiration date %v", exp)
	}
}

func TestParseTickerInvalid(t *testing.T) {
	for _, symbol := range []string{"A_B_C", "GME_011521X100", "GME_011521Pabc"} {
		if _, err := ParseTicker(symbol); !errors.Is(err, ErrInvalidTicker) {
			t.Errorf("%s: expected ErrInvalidTicker, got %v", symbol, err)
		}
	}
}

func TestMarketPrice(t *testing.T) {
	if got := MarketPrice(1.0, 1.2, 1.1, 1.15); got != 1.1 {
		t.Errorf("Expected last price inside the spread, got %v", got)
	}

	if got := MarketPrice(1.0, 1.2, 1.3, 1.15); got != 1.15 {
		t.Errorf("Expected mark when last is outside the spread, got %v", got)
	}

	if got := MarketPrice(1.0, 1.2, 1.0, 1.15); got != 1.15 {
		t.Errorf("Expected mark when last equals the bid, got %v", got)
	}
}

func TestFloatUnmarshal(t *testing.T) {
	var v struct {
		A Float `json:"a"`
		B Float `json:"b"`
		C Float `json:"c"`
	}

	if err := json.Unmarshal([]byte(`{"a": 0.25, "b": "NaN", "c": "-0.5"}`), &v); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if v.A != 0.25 {
		t.Errorf("Expected 0.25, got %v", v.A)
	}
	if !math.IsNaN(float64(v.B)) {
		t.Errorf("Expected NaN, got %v", v.B)
	}
	if v.C != -0.5 {
		t.Errorf("Expected -0.5, got %v", v.C)
	}
}

func TestPositionQuantity(t *testing.T) {
	p := Position{LongQuantity: 0, ShortQuantity: 3, AssetType: AssetOption}

	if p.Quantity() != -3 {
		t.Errorf("Expected quantity -3, got %v", p.Quantity())
	}

	if !p.IsOption() {
		t.Error("Expected position to be an option")
	}
}
