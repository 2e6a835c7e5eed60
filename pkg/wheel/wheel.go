package wheel

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kerbaras/stonkers/pkg/conditions"
	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/sources"
	"gonum.org/v1/gonum/stat"
)

type Kind int

const (
	KindInfo Kind = iota
	KindSkip
	KindWarning
	KindTarget
	KindWrite
)

// Message is one line of a wheel's outcome.
type Message struct {
	Kind Kind
	Text string
}

func (m Message) String() string {
	return m.Text
}

// Wheel sizes the calls and puts to write for one ticker.
type Wheel struct {
	AccountID string
	Config    Config
	Summary   *AccountSummary
	Ticker    *Ticker
	// Replace cancels an open sell to open order on the chosen contract
	// instead of skipping it.
	Replace bool

	Contracts []data.OptionContract
	Messages  []Message
	Options   []*ToWrite
}

func New(accountID string, cfg Config, summary *AccountSummary, positions *Positions) *Wheel {
	return &Wheel{
		AccountID: accountID,
		Config:    cfg,
		Summary:   summary,
		Ticker:    NewTicker(accountID, cfg.Ticker, cfg.StdDevWindow, positions),
	}
}

func (w *Wheel) Symbol() string {
	return w.Config.Ticker
}

func (w *Wheel) display(kind Kind, format string, args ...any) {
	w.Messages = append(w.Messages, Message{Kind: kind, Text: fmt.Sprintf(format, args...)})
}

func (w *Wheel) skip(what, why string) {
	w.display(KindSkip, "Skipping writing %s: %s", what, why)
}

func (w *Wheel) excess(n int, what string) {
	w.display(KindWarning, "Warning: excess %s (%d)", what, n)
}

// ChainRequest covers the expirations the wheel conditions can pick from.
func ChainRequest(symbol string, now time.Time) sources.ChainRequest {
	return sources.ChainRequest{
		Symbol:       symbol,
		ContractType: "ALL",
		FromDate:     now,
		ToDate:       now.AddDate(0, 0, 66),
		OptionType:   "S",
	}
}

// Steps is the number of times Run reports progress.
const Steps = 5

// Run loads the ticker and decides what to write. advance is called after
// every step and may be called from several goroutines.
func (w *Wheel) Run(ctx context.Context, client MarketData, now time.Time, advance func()) error {
	if advance == nil {
		advance = func() {}
	}

	contracts, err := client.Options(ctx, ChainRequest(w.Symbol(), now))
	if err != nil {
		return err
	}
	advance()

	if len(contracts) == 0 {
		w.display(KindInfo, "Skipping %s: no options", w.Symbol())
		return nil
	}
	w.Contracts = contracts

	if err := w.Ticker.Load(ctx, client, now, advance); err != nil {
		return err
	}

	w.WritePuts()
	w.WriteCalls()
	return nil
}

func (w *Wheel) IsRed() bool {
	return w.Ticker.Price() < w.Ticker.Close()
}

func (w *Wheel) IsGreen() bool {
	return w.Ticker.Price() > w.Ticker.Close()
}

func (w *Wheel) TargetBuyingPower() float64 {
	return w.Summary.TargetBuyingPower() * w.Config.Weight
}

// TargetShares rounds the shares the target buying power affords down to
// whole lots.
func (w *Wheel) TargetShares() int {
	price := w.Ticker.Price()
	if price <= 0 {
		return 0
	}
	return int(math.Floor(w.TargetBuyingPower()/price/100) * 100)
}

func (w *Wheel) MaximumNewContracts() int {
	price := w.Ticker.Price()
	if price <= 0 {
		return 1
	}
	bp := w.TargetBuyingPower() * w.Config.MaxContractsPercent
	return max(1, int(math.Floor(bp/price/100)))
}

func (w *Wheel) NetTargetCalls() int {
	return int(math.Floor(float64(w.Ticker.NumShares())/100)) - w.Ticker.NumCalls()
}

func (w *Wheel) NetTargetPuts() int {
	return int(math.Floor(float64(w.TargetShares())/100)) - w.Ticker.NumPuts()
}

func (w *Wheel) NetTargetShares() int {
	return w.TargetShares() - w.Ticker.NumShares() - w.Ticker.NumPuts()*100
}

func (w *Wheel) HasShares() bool {
	return w.Ticker.NumShares() > 0
}

func (w *Wheel) HasExcessCalls() bool {
	return w.NetTargetCalls() < 0
}

func (w *Wheel) HasExcessPuts() bool {
	return w.NetTargetPuts() < 0
}

func (w *Wheel) HasExcessShares() bool {
	return w.HasShares() && w.NetTargetShares() < 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (w *Wheel) ExcessCalls() int {
	if w.HasExcessCalls() {
		return abs(w.NetTargetCalls())
	}
	return 0
}

func (w *Wheel) ExcessPuts() int {
	if w.HasExcessPuts() {
		return abs(w.NetTargetPuts())
	}
	return 0
}

func (w *Wheel) ExcessShares() int {
	return abs(w.TargetShares() - w.Ticker.NumShares())
}

func (w *Wheel) ToWriteCalls() int {
	if w.NetTargetCalls() < 0 {
		return 0
	}
	return min(w.MaximumNewContracts(), w.NetTargetCalls())
}

func (w *Wheel) ToWritePuts() int {
	if w.NetTargetPuts() < 0 {
		return 0
	}
	return min(w.MaximumNewContracts(), w.NetTargetPuts())
}

// WriteThreshold is how far the price has to move from the close before
// writing: the close scaled by the standard deviation of log closes and by
// sigma.
func (w *Wheel) WriteThreshold() float64 {
	closes := w.Ticker.Closes()
	if len(closes) < 2 {
		return 0
	}

	logs := make([]float64, len(closes))
	for i, c := range closes {
		logs[i] = math.Log(c)
	}
	return w.Ticker.Close() * (math.Exp(stat.StdDev(logs, nil)) - 1) * w.Config.Sigma
}

func (w *Wheel) target(n, net int, what string) {
	w.display(KindTarget, "Writing %d %s, target: %d, max per day: %d", n, what, net, w.MaximumNewContracts())
}

func (w *Wheel) belowThreshold(what string, net int) bool {
	change, threshold := w.Ticker.Change(), w.WriteThreshold()
	if change < threshold {
		w.skip(fmt.Sprintf("%d %s", net, what),
			fmt.Sprintf("change (%.2f) is less than threshold (%.2f)", change, threshold))
		return true
	}
	return false
}

func (w *Wheel) write(conds []conditions.Condition, n int, what string) {
	best := conditions.Best(w.Contracts, conds)
	if best == nil {
		w.skip(what, "no options meet conditions")
		return
	}

	option := newToWrite(best, w.Symbol(), n)
	if existing := w.Ticker.ExistingOrder(best.OptionContract); existing != nil {
		if !w.Replace {
			w.skip(what, fmt.Sprintf("order %d already open for %s", existing.ID, option.Symbol()))
			return
		}
		option.Replaces = existing.ID
		w.display(KindInfo, "Replacing order %d for %s", existing.ID, option.Symbol())
	}
	w.Options = append(w.Options, option)
	w.display(KindWrite, "%s", option)
}

// WriteCalls writes covered calls against whole lots of shares once the
// underlying rallied past the threshold.
func (w *Wheel) WriteCalls() {
	if w.HasExcessCalls() {
		w.excess(w.ExcessCalls(), "calls")
		return
	}

	n := w.ToWriteCalls()
	if n == 0 {
		w.skip("calls", "no calls to write")
		return
	}

	if !w.IsGreen() {
		w.skip(fmt.Sprintf("%d calls", n), "underlying is not green")
		return
	}

	if w.belowThreshold("calls", w.NetTargetCalls()) {
		return
	}

	if w.Ticker.HadOrderToday() {
		w.skip("calls", "already wrote an option today")
		return
	}

	w.target(n, w.NetTargetCalls(), "calls")
	w.write(w.Config.CallConditions(), n, "calls")
}

// WritePuts writes cash secured puts toward the target shares once the
// underlying dropped past the threshold.
func (w *Wheel) WritePuts() {
	if w.HasExcessShares() {
		w.excess(w.ExcessShares(), "shares")
		return
	}

	if w.HasExcessPuts() {
		w.excess(w.ExcessPuts(), "puts")
		return
	}

	if net := w.NetTargetShares(); net < 0 {
		w.skip("puts", fmt.Sprintf("net target shares is negative (%d)", net))
		return
	}

	if !w.IsRed() {
		w.skip(fmt.Sprintf("%d puts", w.ToWritePuts()), "underlying is not red")
		return
	}

	if w.belowThreshold("puts", w.NetTargetPuts()) {
		return
	}

	n := w.ToWritePuts()
	if n == 0 {
		w.skip(fmt.Sprintf("%d puts", w.NetTargetPuts()), "no puts to write")
		return
	}

	if w.Ticker.HadOrderToday() {
		w.skip("puts", "already wrote an option today")
		return
	}

	w.target(n, w.NetTargetPuts(), "puts")
	w.write(w.Config.PutConditions(), n, "puts")
}
