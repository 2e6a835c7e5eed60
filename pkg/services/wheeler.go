package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kerbaras/stonkers/pkg/orders"
	"github.com/kerbaras/stonkers/pkg/wheel"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Progress statuses
const (
	StatusLoading = "loading"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// Progress represents the progress of one ticker's wheel
type Progress struct {
	Ticker string
	Step   int
	Steps  int
	Status string
	Err    error
}

// Wheeler runs the wheel of several tickers of an account concurrently
type Wheeler struct {
	client       *Client
	marginUsage  float64
	concurrency  int
	now          func() time.Time
	replace      bool
	progressChan chan Progress

	mu     sync.Mutex
	closed bool
}

type WheelerOption func(*Wheeler)

// WithMarginUsage sets the share of net liquidation the wheels size against.
func WithMarginUsage(usage float64) WheelerOption {
	return func(w *Wheeler) {
		w.marginUsage = usage
	}
}

func WithConcurrency(n int) WheelerOption {
	return func(w *Wheeler) {
		w.concurrency = n
	}
}

// WithReplace makes the wheels replace open sell to open orders on the
// contract they pick instead of skipping it.
func WithReplace(replace bool) WheelerOption {
	return func(w *Wheeler) {
		w.replace = replace
	}
}

func WithWheelClock(now func() time.Time) WheelerOption {
	return func(w *Wheeler) {
		w.now = now
	}
}

// NewWheeler creates a new Wheeler reading through client
func NewWheeler(client *Client, opts ...WheelerOption) *Wheeler {
	w := &Wheeler{
		client:       client,
		marginUsage:  wheel.DefaultMarginUsage,
		concurrency:  4,
		now:          time.Now,
		progressChan: make(chan Progress, 100),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Progress returns the channel for receiving progress updates
func (w *Wheeler) Progress() <-chan Progress {
	return w.progressChan
}

// Run loads the account and runs one wheel per ticker. Configs repeating a
// ticker are merged, the last one wins. Wheels are returned in the order
// their tickers first appear.
func (w *Wheeler) Run(ctx context.Context, accountID string, configs []wheel.Config) (*wheel.AccountSummary, []*wheel.Wheel, error) {
	configs = wheel.Dedupe(configs)

	account, err := w.client.Account(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	summary := wheel.NewAccountSummary(account, w.marginUsage)
	positions := wheel.NewPositions(account.Positions)

	tickers := make([]string, len(configs))
	for i, cfg := range configs {
		tickers[i] = cfg.Ticker
		w.sendProgress(Progress{Ticker: cfg.Ticker, Steps: wheel.Steps, Status: StatusLoading})
	}
	if _, err := w.client.Quotes(ctx, append(tickers, positions.Symbols()...)); err != nil {
		return nil, nil, err
	}

	now := w.now()
	wheels := make([]*wheel.Wheel, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, cfg := range configs {
		wh := wheel.New(accountID, cfg, summary, positions)
		wh.Replace = w.replace
		wheels[i] = wh

		g.Go(func() error {
			var step atomic.Int32
			advance := func() {
				w.sendProgress(Progress{
					Ticker: cfg.Ticker,
					Step:   int(step.Add(1)),
					Steps:  wheel.Steps,
					Status: StatusRunning,
				})
			}

			if err := wh.Run(gctx, w.client, now, advance); err != nil {
				w.sendProgress(Progress{Ticker: cfg.Ticker, Steps: wheel.Steps, Status: StatusError, Err: err})
				return fmt.Errorf("%s: %w", cfg.Ticker, err)
			}

			log.Info().Str("symbol", cfg.Ticker).Int("options", len(wh.Options)).Msg("wheel done")
			w.sendProgress(Progress{Ticker: cfg.Ticker, Step: wheel.Steps, Steps: wheel.Steps, Status: StatusDone})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, nil, err
	}
	return summary, wheels, nil
}

// Holdings lists the account positions on tickers priced with current quotes.
func (w *Wheeler) Holdings(ctx context.Context, accountID string, tickers []string) ([]wheel.Holding, error) {
	account, err := w.client.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	positions := wheel.NewPositions(account.Positions)

	quotes, err := w.client.Quotes(ctx, append(positions.Symbols(), tickers...))
	if err != nil {
		return nil, err
	}
	return positions.Holdings(tickers, quotes, w.now()), nil
}

// CancelReplaced cancels the open orders the options replace.
func (w *Wheeler) CancelReplaced(ctx context.Context, accountID string, options []*wheel.ToWrite) error {
	var ids []int64
	for _, o := range options {
		if o.Replaces != 0 {
			ids = append(ids, o.Replaces)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	log.Info().Str("account", accountID).Ints64("orders", ids).Msg("cancelling replaced orders")
	return w.client.CancelOrders(ctx, accountID, ids...)
}

// SendOrders places the orders concurrently and returns their ids in order.
// Orders that failed have a zero id.
func (w *Wheeler) SendOrders(ctx context.Context, accountID string, toSend []orders.Order) ([]int64, error) {
	ids := make([]int64, len(toSend))

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for i, order := range toSend {
		g.Go(func() error {
			id, err := w.client.PlaceOrder(ctx, accountID, order)
			if err != nil {
				return err
			}
			log.Info().Str("account", accountID).Int64("order", id).Msg("order sent")
			ids[i] = id
			return nil
		})
	}
	return ids, g.Wait()
}

// sendProgress sends a progress update (non-blocking). Updates after Close
// are dropped.
func (w *Wheeler) sendProgress(progress Progress) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	select {
	case w.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}

// Close closes the progress channel. Runs still unwinding stop reporting.
func (w *Wheeler) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	close(w.progressChan)
}
