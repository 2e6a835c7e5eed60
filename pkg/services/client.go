package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kerbaras/stonkers/pkg/cache"
	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/orders"
	"github.com/kerbaras/stonkers/pkg/sources"
	"github.com/rs/zerolog/log"
)

// Repository is the persistence the client needs.
type Repository interface {
	SaveCandles(symbol string, start time.Time, candles []data.Candle) error
	HistoryFetchedAt(symbol string) (fetchedAt, start time.Time, ok bool, err error)
	Candles(symbol string, from time.Time) ([]data.Candle, error)
	SaveSentOrder(o *data.SentOrder) error
	ListSentOrders(accountID string) ([]*data.SentOrder, error)
}

// Client wraps a broker with in-memory caches and a local price history
// store.
type Client struct {
	broker     sources.Broker
	repo       Repository
	historyTTL time.Duration
	now        func() time.Time

	accounts *cache.Memo[[]data.Account]
	account  *cache.Memo[*data.Account]
	chains   *cache.Memo[*data.OptionChain]
	quotes   *cache.Memo[data.Quote]
	history  *cache.Memo[[]data.Candle]
	orders   *cache.Memo[[]data.Order]
	hours    *cache.Memo[bool]
}

type ClientOption func(*Client)

// WithRepository stores price history and sent orders in repo.
func WithRepository(repo Repository) ClientOption {
	return func(c *Client) {
		c.repo = repo
	}
}

func WithHistoryTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.historyTTL = ttl
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient caches broker responses for ttl.
func NewClient(broker sources.Broker, ttl time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		broker:     broker,
		historyTTL: 15 * time.Minute,
		now:        time.Now,
		accounts:   cache.NewMemo[[]data.Account]("accounts", 4, ttl),
		account:    cache.NewMemo[*data.Account]("account", 16, ttl),
		chains:     cache.NewMemo[*data.OptionChain]("chains", 128, ttl),
		quotes:     cache.NewMemo[data.Quote]("quotes", 1024, ttl),
		history:    cache.NewMemo[[]data.Candle]("history", 128, ttl),
		orders:     cache.NewMemo[[]data.Order]("orders", 16, ttl),
		hours:      cache.NewMemo[bool]("hours", 4, ttl),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) displayNames(ctx context.Context, accounts []data.Account) {
	names, err := c.broker.UserPrincipals(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not load account display names")
		return
	}
	for i := range accounts {
		accounts[i].DisplayName = names[accounts[i].ID]
	}
}

// Accounts lists the accounts, without positions, sorted by id.
func (c *Client) Accounts(ctx context.Context) ([]data.Account, error) {
	return c.accounts.Get(ctx, "all", func(ctx context.Context) ([]data.Account, error) {
		accounts, err := c.broker.Accounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing accounts: %w", err)
		}
		c.displayNames(ctx, accounts)
		sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
		return accounts, nil
	})
}

// Account returns the account with its positions.
func (c *Client) Account(ctx context.Context, accountID string) (*data.Account, error) {
	return c.account.Get(ctx, accountID, func(ctx context.Context) (*data.Account, error) {
		account, err := c.broker.Account(ctx, accountID, sources.FieldPositions)
		if err != nil {
			return nil, fmt.Errorf("loading account %s: %w", accountID, err)
		}
		accounts := []data.Account{*account}
		c.displayNames(ctx, accounts)
		return &accounts[0], nil
	})
}

func (c *Client) Positions(ctx context.Context, accountID string) ([]data.Position, error) {
	account, err := c.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Positions, nil
}

func chainKey(req sources.ChainRequest) string {
	return strings.Join([]string{
		req.Symbol,
		req.ContractType,
		req.FromDate.Format(time.DateOnly),
		req.ToDate.Format(time.DateOnly),
		req.OptionType,
	}, "|")
}

func (c *Client) OptionChain(ctx context.Context, req sources.ChainRequest) (*data.OptionChain, error) {
	return c.chains.Get(ctx, chainKey(req), func(ctx context.Context) (*data.OptionChain, error) {
		chain, err := c.broker.OptionChain(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("loading option chain for %s: %w", req.Symbol, err)
		}
		return chain, nil
	})
}

// Options returns the contracts of the chain.
func (c *Client) Options(ctx context.Context, req sources.ChainRequest) ([]data.OptionContract, error) {
	chain, err := c.OptionChain(ctx, req)
	if err != nil {
		return nil, err
	}
	return chain.Contracts, nil
}

func (c *Client) Quote(ctx context.Context, symbol string) (data.Quote, error) {
	return c.quotes.Get(ctx, symbol, func(ctx context.Context) (data.Quote, error) {
		quotes, err := c.broker.Quotes(ctx, []string{symbol})
		if err != nil {
			return data.Quote{}, fmt.Errorf("loading quote for %s: %w", symbol, err)
		}
		q, ok := quotes[symbol]
		if !ok {
			return data.Quote{}, fmt.Errorf("no quote for %s", symbol)
		}
		return q, nil
	})
}

// Quotes returns the quotes of symbols, fetching every uncached symbol in one
// request. Symbols the broker does not know are left out.
func (c *Client) Quotes(ctx context.Context, symbols []string) (map[string]data.Quote, error) {
	out := make(map[string]data.Quote, len(symbols))

	var missing []string
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if seen[s] {
			continue
		}
		seen[s] = true
		if q, ok := c.quotes.Peek(s); ok {
			out[s] = q
			continue
		}
		missing = append(missing, s)
	}

	if len(missing) == 0 {
		return out, nil
	}

	sort.Strings(missing)
	fetched, err := c.broker.Quotes(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("loading quotes: %w", err)
	}
	for symbol, q := range fetched {
		c.quotes.Set(symbol, q)
		out[symbol] = q
	}
	log.Debug().Int("fetched", len(fetched)).Int("cached", len(out)-len(fetched)).Msg("quotes")
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// PriceHistoryEveryDay returns the daily candles of symbol since start,
// oldest first. Stored history younger than the history TTL is used instead
// of the broker.
func (c *Client) PriceHistoryEveryDay(ctx context.Context, symbol string, start time.Time) ([]data.Candle, error) {
	start = startOfDay(start)
	key := symbol + "|" + start.Format(time.DateOnly)

	return c.history.Get(ctx, key, func(ctx context.Context) ([]data.Candle, error) {
		if candles, ok := c.storedHistory(symbol, start); ok {
			return candles, nil
		}

		candles, err := c.broker.PriceHistory(ctx, symbol, start, c.now())
		if err != nil {
			return nil, fmt.Errorf("loading price history for %s: %w", symbol, err)
		}
		sort.Slice(candles, func(i, j int) bool { return candles[i].Datetime.Before(candles[j].Datetime) })

		if c.repo != nil {
			if err := c.repo.SaveCandles(symbol, start, candles); err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("could not store price history")
			}
		}
		return candles, nil
	})
}

func (c *Client) storedHistory(symbol string, start time.Time) ([]data.Candle, bool) {
	if c.repo == nil {
		return nil, false
	}

	fetchedAt, storedStart, ok, err := c.repo.HistoryFetchedAt(symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("could not read price history")
		return nil, false
	}
	if !ok || c.now().Sub(fetchedAt) > c.historyTTL || storedStart.After(start) {
		return nil, false
	}

	candles, err := c.repo.Candles(symbol, start)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("could not read price history")
		return nil, false
	}
	log.Debug().Str("symbol", symbol).Int("candles", len(candles)).Msg("using stored price history")
	return candles, true
}

// Orders returns the orders of the account entered during the last week.
func (c *Client) Orders(ctx context.Context, accountID string) ([]data.Order, error) {
	return c.orders.Get(ctx, accountID, func(ctx context.Context) ([]data.Order, error) {
		now := c.now()
		orders, err := c.broker.Orders(ctx, accountID, now.AddDate(0, 0, -7), now)
		if err != nil {
			return nil, fmt.Errorf("loading orders for %s: %w", accountID, err)
		}
		return orders, nil
	})
}

func (c *Client) IsEquitiesOpen(ctx context.Context) (bool, error) {
	today := startOfDay(c.now())
	return c.hours.Get(ctx, today.Format(time.DateOnly), func(ctx context.Context) (bool, error) {
		hours, err := c.broker.MarketHours(ctx, sources.MarketEquity, today)
		if err != nil {
			return false, fmt.Errorf("loading market hours: %w", err)
		}
		return hours.IsOpen, nil
	})
}

// PlaceOrder sends the order and records it locally.
func (c *Client) PlaceOrder(ctx context.Context, accountID string, order orders.Order) (int64, error) {
	id, err := c.broker.PlaceOrder(ctx, accountID, order)
	if err != nil {
		return 0, fmt.Errorf("placing order: %w", err)
	}
	c.orders.Remove(accountID)

	if c.repo != nil {
		if err := c.repo.SaveSentOrder(sentOrder(accountID, order, c.now())); err != nil {
			log.Warn().Err(err).Str("account", accountID).Msg("could not record sent order")
		}
	}
	return id, nil
}

func sentOrder(accountID string, order orders.Order, now time.Time) *data.SentOrder {
	payload, _ := json.Marshal(order)
	out := &data.SentOrder{
		AccountID: accountID,
		Price:     order.Price,
		Payload:   string(payload),
		SentAt:    now,
	}
	if len(order.OrderLegCollection) > 0 {
		leg := order.OrderLegCollection[0]
		out.Symbol = leg.Instrument.Symbol
		out.Instruction = leg.Instruction
		out.Quantity = float64(leg.Quantity)
	}
	return out
}

func (c *Client) CancelOrders(ctx context.Context, accountID string, orderIDs ...int64) error {
	var errs []error
	for _, id := range orderIDs {
		if err := c.broker.CancelOrder(ctx, accountID, id); err != nil {
			errs = append(errs, fmt.Errorf("cancelling order %d: %w", id, err))
		}
	}
	c.orders.Remove(accountID)
	return errors.Join(errs...)
}

// SentOrders lists the orders placed through this client, newest first.
func (c *Client) SentOrders(accountID string) ([]*data.SentOrder, error) {
	if c.repo == nil {
		return nil, nil
	}
	return c.repo.ListSentOrders(accountID)
}
