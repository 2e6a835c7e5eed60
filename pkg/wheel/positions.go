package wheel

import (
	"math"
	"sort"
	"time"

	"github.com/kerbaras/stonkers/pkg/data"
)

// Positions groups account positions by underlying.
type Positions struct {
	byUnderlying map[string][]data.Position
}

// NewPositions sorts positions by underlying, then contract type and
// expiration, shares first.
func NewPositions(positions []data.Position) *Positions {
	p := &Positions{byUnderlying: make(map[string][]data.Position)}
	for _, pos := range positions {
		p.byUnderlying[pos.Underlying] = append(p.byUnderlying[pos.Underlying], pos)
	}
	for _, list := range p.byUnderlying {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if a.ContractType != b.ContractType {
				return a.ContractType < b.ContractType
			}
			return a.ExpirationDate.Before(b.ExpirationDate)
		})
	}
	return p
}

func (p *Positions) Underlyings() []string {
	out := make([]string, 0, len(p.byUnderlying))
	for u := range p.byUnderlying {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (p *Positions) Of(underlying string) []data.Position {
	return p.byUnderlying[underlying]
}

// Symbols lists every position symbol together with its underlying.
func (p *Positions) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range p.Underlyings() {
		for _, s := range append([]string{u}, symbolsOf(p.byUnderlying[u])...) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func symbolsOf(positions []data.Position) []string {
	out := make([]string, len(positions))
	for i, pos := range positions {
		out[i] = pos.Symbol
	}
	return out
}

func (p *Positions) options(ticker, contractType string) []data.Position {
	var out []data.Position
	for _, pos := range p.byUnderlying[ticker] {
		if pos.IsOption() && pos.ContractType == contractType {
			out = append(out, pos)
		}
	}
	return out
}

func (p *Positions) Calls(ticker string) []data.Position {
	return p.options(ticker, data.ContractCall)
}

func (p *Positions) Puts(ticker string) []data.Position {
	return p.options(ticker, data.ContractPut)
}

func (p *Positions) Shares(ticker string) []data.Position {
	var out []data.Position
	for _, pos := range p.byUnderlying[ticker] {
		if pos.AssetType == data.AssetEquity {
			out = append(out, pos)
		}
	}
	return out
}

// CountPositions is the absolute net quantity of positions.
func CountPositions(positions []data.Position) int {
	var long, short float64
	for _, pos := range positions {
		long += pos.LongQuantity
		short += pos.ShortQuantity
	}
	return int(math.Abs(long - short))
}

// CostBasis is what was paid for the position, per share for options.
func CostBasis(pos data.Position) float64 {
	value := pos.AveragePrice * pos.Quantity()
	if pos.IsOption() {
		value *= 100
	}
	return value
}

func InTheMoney(pos data.Position, underlyingPrice float64) bool {
	if !pos.IsOption() {
		return false
	}
	if pos.ContractType == data.ContractCall {
		return pos.Strike < underlyingPrice
	}
	return pos.Strike > underlyingPrice
}

// Holding is one position as shown in the positions table.
type Holding struct {
	Underlying    string
	Symbol        string
	Right         string
	Quantity      float64
	MarketPrice   float64
	AveragePrice  float64
	Value         float64
	Cost          float64
	Profit        float64
	ProfitPercent float64

	// Option only.
	Strike     float64
	Expiration time.Time
	DTE        int
	ITM        bool
}

func (h Holding) IsOption() bool {
	return h.Right != "S"
}

// Holdings lists the positions of tickers in table order. Prices come from
// quotes, keyed by symbol; positions without a quote are priced at zero.
func (p *Positions) Holdings(tickers []string, quotes map[string]data.Quote, now time.Time) []Holding {
	show := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		show[t] = true
	}

	var out []Holding
	for _, underlying := range p.Underlyings() {
		if !show[underlying] {
			continue
		}
		underlyingPrice := quotes[underlying].Price()

		for _, pos := range p.Of(underlying) {
			cost := CostBasis(pos)
			h := Holding{
				Underlying:   underlying,
				Symbol:       pos.Symbol,
				Right:        "S",
				Quantity:     pos.Quantity(),
				MarketPrice:  quotes[pos.Symbol].Price(),
				AveragePrice: pos.AveragePrice,
				Value:        pos.MarketValue,
				Cost:         cost,
				Profit:       pos.MarketValue - cost,
			}
			if cost != 0 {
				h.ProfitPercent = h.Profit / math.Abs(cost)
			}
			if pos.IsOption() {
				h.Right = "O"
				if pos.ContractType != "" {
					h.Right = pos.ContractType[:1]
				}
				h.Strike = pos.Strike
				h.Expiration = pos.ExpirationDate
				h.DTE = int(pos.ExpirationDate.Sub(now).Hours() / 24)
				h.ITM = InTheMoney(pos, underlyingPrice)
			}
			out = append(out, h)
		}
	}
	return out
}
