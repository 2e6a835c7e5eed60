package wheel

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/orders"
	"github.com/kerbaras/stonkers/pkg/sources"
	"golang.org/x/sync/errgroup"
)

// MarketData is what a wheel reads from the broker.
type MarketData interface {
	PriceHistoryEveryDay(ctx context.Context, symbol string, start time.Time) ([]data.Candle, error)
	Quote(ctx context.Context, symbol string) (data.Quote, error)
	Orders(ctx context.Context, accountID string) ([]data.Order, error)
	IsEquitiesOpen(ctx context.Context) (bool, error)
	Options(ctx context.Context, req sources.ChainRequest) ([]data.OptionContract, error)
}

// Ticker is the market state of one underlying within an account.
type Ticker struct {
	AccountID   string
	Symbol      string
	HistoryDays int

	History    []data.Candle
	Quote      data.Quote
	Orders     []data.Order
	MarketOpen bool

	positions *Positions
	now       time.Time
}

func NewTicker(accountID, symbol string, historyDays int, positions *Positions) *Ticker {
	if positions == nil {
		positions = NewPositions(nil)
	}
	return &Ticker{
		AccountID:   accountID,
		Symbol:      symbol,
		HistoryDays: historyDays,
		positions:   positions,
		now:         time.Now(),
	}
}

// Load fetches the history, quote, orders and market hours, reporting each
// finished step on advance.
func (t *Ticker) Load(ctx context.Context, client MarketData, now time.Time, advance func()) error {
	t.now = now
	if advance == nil {
		advance = func() {}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		history, err := client.PriceHistoryEveryDay(ctx, t.Symbol, now.AddDate(0, 0, -t.HistoryDays))
		if err != nil {
			return err
		}
		t.History = history
		advance()
		return nil
	})
	g.Go(func() error {
		quote, err := client.Quote(ctx, t.Symbol)
		if err != nil {
			return err
		}
		t.Quote = quote
		advance()
		return nil
	})
	g.Go(func() error {
		orders, err := client.Orders(ctx, t.AccountID)
		if err != nil {
			return err
		}
		t.Orders = t.ownOrders(orders)
		advance()
		return nil
	})
	g.Go(func() error {
		open, err := client.IsEquitiesOpen(ctx)
		if err != nil {
			return err
		}
		t.MarketOpen = open
		advance()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading %s: %w", t.Symbol, err)
	}
	return nil
}

// ownOrders keeps the single leg orders on this underlying.
func (t *Ticker) ownOrders(all []data.Order) []data.Order {
	var out []data.Order
	for _, o := range all {
		if len(o.Legs) == 1 && o.Legs[0].Instrument.UnderlyingSymbol == t.Symbol {
			out = append(out, o)
		}
	}
	return out
}

func (t *Ticker) Price() float64 {
	return t.Quote.Price()
}

// Close is the reference close the change is measured from. While the market
// is open that is the previous session's close from the history.
func (t *Ticker) Close() float64 {
	if t.MarketOpen && len(t.History) >= 2 {
		return t.History[len(t.History)-2].Close
	}
	return t.Quote.Close
}

func (t *Ticker) Change() float64 {
	return math.Abs(t.Price() - t.Close())
}

func (t *Ticker) Closes() []float64 {
	out := make([]float64, len(t.History))
	for i, c := range t.History {
		out[i] = c.Close
	}
	return out
}

func (t *Ticker) Calls() []data.Position  { return t.positions.Calls(t.Symbol) }
func (t *Ticker) Puts() []data.Position   { return t.positions.Puts(t.Symbol) }
func (t *Ticker) Shares() []data.Position { return t.positions.Shares(t.Symbol) }

func (t *Ticker) NumCalls() int  { return CountPositions(t.Calls()) }
func (t *Ticker) NumPuts() int   { return CountPositions(t.Puts()) }
func (t *Ticker) NumShares() int { return CountPositions(t.Shares()) }

func filterStatus(all []data.Order, statuses ...string) []data.Order {
	var out []data.Order
	for _, o := range all {
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

func filterInstruction(all []data.Order, instruction string) []data.Order {
	var out []data.Order
	for _, o := range all {
		if len(o.Legs) == 1 && o.Legs[0].Instruction == instruction {
			out = append(out, o)
		}
	}
	return out
}

func (t *Ticker) OpenOrders() []data.Order {
	return filterStatus(t.Orders, "WORKING", "QUEUED")
}

func (t *Ticker) FilledOrders() []data.Order {
	return filterStatus(t.Orders, "FILLED")
}

func (t *Ticker) OpenSellToOpenOrders() []data.Order {
	return filterInstruction(t.OpenOrders(), orders.SellToOpen)
}

// HadOrderToday reports whether the newest open or filled order was entered
// today.
func (t *Ticker) HadOrderToday() bool {
	var latest time.Time
	for _, o := range append(t.OpenOrders(), t.FilledOrders()...) {
		if o.EnteredTime.After(latest) {
			latest = o.EnteredTime
		}
	}
	if latest.IsZero() {
		return false
	}

	local := latest.In(t.now.Location())
	y1, m1, d1 := local.Date()
	y2, m2, d2 := t.now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ExistingOrder returns the open sell to open order for the contract, if any.
func (t *Ticker) ExistingOrder(contract *data.OptionContract) *data.Order {
	for _, o := range t.OpenSellToOpenOrders() {
		leg := o.Legs[0]
		if leg.Instrument.Symbol == contract.Symbol && (leg.Instrument.PutCall == "" || leg.Instrument.PutCall == contract.PutCall) {
			return &o
		}
	}
	return nil
}
