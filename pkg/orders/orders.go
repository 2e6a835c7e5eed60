// Package orders builds order requests in the broker's JSON format.
package orders

import (
	"fmt"
	"strings"

	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/shopspring/decimal"
)

const (
	SessionNormal = "NORMAL"

	DurationDay            = "DAY"
	DurationGoodTillCancel = "GOOD_TILL_CANCEL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"

	StrategySingle  = "SINGLE"
	StrategyTrigger = "TRIGGER"

	BuyToOpen   = "BUY_TO_OPEN"
	SellToOpen  = "SELL_TO_OPEN"
	BuyToClose  = "BUY_TO_CLOSE"
	SellToClose = "SELL_TO_CLOSE"
	Buy         = "BUY"
	Sell        = "SELL"
)

type Instrument struct {
	Symbol    string `json:"symbol"`
	AssetType string `json:"assetType"`
}

type Leg struct {
	Instruction string     `json:"instruction"`
	Quantity    int        `json:"quantity"`
	Instrument  Instrument `json:"instrument"`
}

// Order is an order request. Prices are decimal strings.
type Order struct {
	Session              string  `json:"session,omitempty"`
	Duration             string  `json:"duration,omitempty"`
	OrderType            string  `json:"orderType,omitempty"`
	Price                string  `json:"price,omitempty"`
	StopPrice            string  `json:"stopPrice,omitempty"`
	OrderStrategyType    string  `json:"orderStrategyType,omitempty"`
	OrderLegCollection   []Leg   `json:"orderLegCollection,omitempty"`
	ChildOrderStrategies []Order `json:"childOrderStrategies,omitempty"`
}

// FormatPrice renders a price with two decimals. Halves round to even.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixedBank(2)
}

type Builder struct {
	order Order
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Session(s string) *Builder {
	b.order.Session = s
	return b
}

func (b *Builder) Duration(d string) *Builder {
	b.order.Duration = d
	return b
}

func (b *Builder) OrderType(t string) *Builder {
	b.order.OrderType = t
	return b
}

func (b *Builder) Price(p float64) *Builder {
	b.order.Price = FormatPrice(p)
	return b
}

// PriceString sets the price verbatim.
func (b *Builder) PriceString(p string) *Builder {
	b.order.Price = p
	return b
}

func (b *Builder) StopPrice(p float64) *Builder {
	b.order.StopPrice = FormatPrice(p)
	return b
}

func (b *Builder) StrategyType(s string) *Builder {
	b.order.OrderStrategyType = s
	return b
}

func (b *Builder) OptionLeg(instruction, symbol string, quantity int) *Builder {
	return b.leg(instruction, symbol, data.AssetOption, quantity)
}

func (b *Builder) EquityLeg(instruction, symbol string, quantity int) *Builder {
	return b.leg(instruction, symbol, data.AssetEquity, quantity)
}

func (b *Builder) leg(instruction, symbol, assetType string, quantity int) *Builder {
	b.order.OrderLegCollection = append(b.order.OrderLegCollection, Leg{
		Instruction: instruction,
		Quantity:    quantity,
		Instrument:  Instrument{Symbol: symbol, AssetType: assetType},
	})
	return b
}

func (b *Builder) ChildStrategy(child *Builder) *Builder {
	b.order.ChildOrderStrategies = append(b.order.ChildOrderStrategies, child.Build())
	return b
}

// Build returns a copy of the order built so far.
func (b *Builder) Build() Order {
	return b.order.clone()
}

func (o Order) clone() Order {
	out := o
	out.OrderLegCollection = append([]Leg(nil), o.OrderLegCollection...)
	out.ChildOrderStrategies = nil
	for _, child := range o.ChildOrderStrategies {
		out.ChildOrderStrategies = append(out.ChildOrderStrategies, child.clone())
	}
	return out
}

func base() *Builder {
	return NewBuilder().
		Session(SessionNormal).
		Duration(DurationDay).
		StrategyType(StrategySingle)
}

func Market() *Builder {
	return base().OrderType(TypeMarket)
}

func Limit(price float64) *Builder {
	return base().OrderType(TypeLimit).Price(price)
}

func OptionBuyToOpenMarket(symbol string, quantity int) *Builder {
	return Market().OptionLeg(BuyToOpen, symbol, quantity)
}

func OptionBuyToOpenLimit(symbol string, quantity int, price float64) *Builder {
	return Limit(price).OptionLeg(BuyToOpen, symbol, quantity)
}

func OptionSellToOpenMarket(symbol string, quantity int) *Builder {
	return Market().OptionLeg(SellToOpen, symbol, quantity)
}

func OptionSellToOpenLimit(symbol string, quantity int, price float64) *Builder {
	return Limit(price).OptionLeg(SellToOpen, symbol, quantity)
}

func OptionBuyToCloseMarket(symbol string, quantity int) *Builder {
	return Market().OptionLeg(BuyToClose, symbol, quantity)
}

func OptionBuyToCloseLimit(symbol string, quantity int, price float64) *Builder {
	return Limit(price).OptionLeg(BuyToClose, symbol, quantity)
}

func OptionSellToCloseMarket(symbol string, quantity int) *Builder {
	return Market().OptionLeg(SellToClose, symbol, quantity)
}

func OptionSellToCloseLimit(symbol string, quantity int, price float64) *Builder {
	return Limit(price).OptionLeg(SellToClose, symbol, quantity)
}

func EquityBuyMarket(symbol string, quantity int) *Builder {
	return Market().EquityLeg(Buy, symbol, quantity)
}

// Describe renders an order in one line per strategy, children indented.
func Describe(o Order) string {
	var sb strings.Builder
	describe(&sb, o, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func describe(sb *strings.Builder, o Order, depth int) {
	indent := strings.Repeat("  ", depth)
	legs := make([]string, 0, len(o.OrderLegCollection))
	for _, leg := range o.OrderLegCollection {
		legs = append(legs, DescribeLeg(leg))
	}

	price := ""
	if o.Price != "" {
		price = " @ $" + o.Price
	}
	fmt.Fprintf(sb, "%s%s%s %s %s\n", indent, strings.Join(legs, ", "), price,
		titleize(o.OrderType), titleize(o.Duration))

	for _, child := range o.ChildOrderStrategies {
		describe(sb, child, depth+1)
	}
}

// DescribeLeg renders an option leg as
// "Sell To Open 2 x GME Jan 15, 2021 $100 Put". Other legs fall back to the
// raw symbol.
func DescribeLeg(leg Leg) string {
	instruction := titleize(leg.Instruction)

	ticker, err := data.ParseTicker(leg.Instrument.Symbol)
	if err != nil || ticker.AssetType != data.AssetOption {
		return fmt.Sprintf("%s %d x %s", instruction, leg.Quantity, leg.Instrument.Symbol)
	}

	expiration := ticker.Expiration
	if date, err := ticker.ExpirationDate(); err == nil {
		expiration = date.Format("Jan 02, 2006")
	}

	strike := decimal.NewFromFloat(ticker.Strike)
	return fmt.Sprintf("%s %d x %s %s $%s %s", instruction, leg.Quantity,
		ticker.Underlying, expiration, strike.String(), titleize(ticker.ContractType))
}

func titleize(s string) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
