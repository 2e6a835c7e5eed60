package wheel

import (
	"fmt"

	"github.com/kerbaras/stonkers/pkg/conditions"
	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/format"
	"github.com/kerbaras/stonkers/pkg/orders"
)

const DefaultProfitTarget = 0.5

// ToWrite is a contract the wheel decided to sell.
type ToWrite struct {
	Contract     data.OptionContract
	Ticker       string
	NumContracts int
	RoR          float64
	// Replaces is the id of the open order to cancel before sending, if any.
	Replaces int64
}

func newToWrite(best *conditions.Evaluated, ticker string, n int) *ToWrite {
	return &ToWrite{
		Contract:     *best.OptionContract,
		Ticker:       ticker,
		NumContracts: n,
		RoR:          best.RoR,
	}
}

func (o *ToWrite) Symbol() string {
	return o.Contract.Symbol
}

func (o *ToWrite) Price() float64 {
	return o.Contract.Price()
}

func (o *ToWrite) Multiplier() float64 {
	if o.Contract.Multiplier == 0 {
		return 100
	}
	return o.Contract.Multiplier
}

// Total is the premium collected for all contracts.
func (o *ToWrite) Total() float64 {
	return float64(o.NumContracts) * o.Price() * o.Multiplier()
}

func (o *ToWrite) SellOrder() *orders.Builder {
	return orders.OptionSellToOpenLimit(o.Symbol(), o.NumContracts, o.Price())
}

// BuyOrder closes the position once profitTarget of the premium is captured.
func (o *ToWrite) BuyOrder(profitTarget float64) *orders.Builder {
	return orders.OptionBuyToCloseLimit(o.Symbol(), o.NumContracts, o.Price()*(1-profitTarget)).
		Duration(orders.DurationGoodTillCancel)
}

// TriggerOrder sells the contract and, once filled, places BuyOrder.
func (o *ToWrite) TriggerOrder(profitTarget float64) *orders.Builder {
	return o.SellOrder().
		StrategyType(orders.StrategyTrigger).
		ChildStrategy(o.BuyOrder(profitTarget))
}

func (o *ToWrite) String() string {
	if o.NumContracts == 0 {
		return fmt.Sprintf("Skipping %s: no options meet conditions.", o.Ticker)
	}

	putCall := "Call"
	if o.Contract.IsPut() {
		putCall = "Put"
	}
	return fmt.Sprintf("Write %d x %s %s %s %s Δ %.4f for %s for a total of %s with a RoR of %s.",
		o.NumContracts,
		o.Ticker,
		o.Contract.ExpirationDate.Format("Jan 02 2006"),
		format.Number(o.Contract.StrikePrice, format.NumberOpts{Precision: 2}),
		putCall,
		o.Contract.Delta,
		format.Money(o.Price()),
		format.Money(o.Total()),
		format.Number(o.RoR, format.NumberOpts{Precision: 2, Percent: true}),
	)
}
