package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/orders"
	"github.com/kerbaras/stonkers/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Mock implementations for testing

type mockBroker struct {
	accountsFunc       func(ctx context.Context, fields ...string) ([]data.Account, error)
	accountFunc        func(ctx context.Context, accountID string, fields ...string) (*data.Account, error)
	userPrincipalsFunc func(ctx context.Context) (map[string]string, error)
	optionChainFunc    func(ctx context.Context, req sources.ChainRequest) (*data.OptionChain, error)
	quotesFunc         func(ctx context.Context, symbols []string) (map[string]data.Quote, error)
	priceHistoryFunc   func(ctx context.Context, symbol string, start, end time.Time) ([]data.Candle, error)
	marketHoursFunc    func(ctx context.Context, market string, date time.Time) (*data.MarketHours, error)
	ordersFunc         func(ctx context.Context, accountID string, from, to time.Time) ([]data.Order, error)
	placeOrderFunc     func(ctx context.Context, accountID string, order orders.Order) (int64, error)
	cancelOrderFunc    func(ctx context.Context, accountID string, orderID int64) error
}

func (m *mockBroker) Accounts(ctx context.Context, fields ...string) ([]data.Account, error) {
	if m.accountsFunc != nil {
		return m.accountsFunc(ctx, fields...)
	}
	return nil, nil
}

func (m *mockBroker) Account(ctx context.Context, accountID string, fields ...string) (*data.Account, error) {
	if m.accountFunc != nil {
		return m.accountFunc(ctx, accountID, fields...)
	}
	return &data.Account{ID: accountID}, nil
}

func (m *mockBroker) UserPrincipals(ctx context.Context) (map[string]string, error) {
	if m.userPrincipalsFunc != nil {
		return m.userPrincipalsFunc(ctx)
	}
	return nil, nil
}

func (m *mockBroker) OptionChain(ctx context.Context, req sources.ChainRequest) (*data.OptionChain, error) {
	if m.optionChainFunc != nil {
		return m.optionChainFunc(ctx, req)
	}
	return &data.OptionChain{Symbol: req.Symbol}, nil
}

func (m *mockBroker) Quotes(ctx context.Context, symbols []string) (map[string]data.Quote, error) {
	if m.quotesFunc != nil {
		return m.quotesFunc(ctx, symbols)
	}
	return nil, nil
}

func (m *mockBroker) PriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]data.Candle, error) {
	if m.priceHistoryFunc != nil {
		return m.priceHistoryFunc(ctx, symbol, start, end)
	}
	return nil, nil
}

func (m *mockBroker) MarketHours(ctx context.Context, market string, date time.Time) (*data.MarketHours, error) {
	if m.marketHoursFunc != nil {
		return m.marketHoursFunc(ctx, market, date)
	}
	return &data.MarketHours{Market: market, Date: date}, nil
}

func (m *mockBroker) Orders(ctx context.Context, accountID string, from, to time.Time) ([]data.Order, error) {
	if m.ordersFunc != nil {
		return m.ordersFunc(ctx, accountID, from, to)
	}
	return nil, nil
}

func (m *mockBroker) PlaceOrder(ctx context.Context, accountID string, order orders.Order) (int64, error) {
	if m.placeOrderFunc != nil {
		return m.placeOrderFunc(ctx, accountID, order)
	}
	return 1, nil
}

func (m *mockBroker) CancelOrder(ctx context.Context, accountID string, orderID int64) error {
	if m.cancelOrderFunc != nil {
		return m.cancelOrderFunc(ctx, accountID, orderID)
	}
	return nil
}

type mockRepository struct {
	mu sync.Mutex

	fetchedAt time.Time
	start     time.Time
	candles   []data.Candle
	sent      []*data.SentOrder
	saves     int
}

func (m *mockRepository) SaveCandles(symbol string, start time.Time, candles []data.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.start = start
	m.candles = candles
	m.fetchedAt = fixedNow
	return nil
}

func (m *mockRepository) HistoryFetchedAt(symbol string) (time.Time, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchedAt, m.start, !m.fetchedAt.IsZero(), nil
}

func (m *mockRepository) Candles(symbol string, from time.Time) ([]data.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []data.Candle
	for _, c := range m.candles {
		if !c.Datetime.Before(from) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepository) SaveSentOrder(o *data.SentOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, o)
	return nil
}

func (m *mockRepository) ListSentOrders(accountID string) ([]*data.SentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent, nil
}

var fixedNow = time.Date(2021, 1, 4, 15, 0, 0, 0, time.UTC)

func newTestClient(broker sources.Broker, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewClient(broker, time.Minute, opts...)
}

func TestClient_Accounts(t *testing.T) {
	var calls atomic.Int32
	broker := &mockBroker{
		accountsFunc: func(ctx context.Context, fields ...string) ([]data.Account, error) {
			calls.Add(1)
			assert.Empty(t, fields)
			return []data.Account{{ID: "2"}, {ID: "1"}}, nil
		},
		userPrincipalsFunc: func(ctx context.Context) (map[string]string, error) {
			return map[string]string{"1": "Margin", "2": "IRA"}, nil
		},
	}
	client := newTestClient(broker)

	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []data.Account{{ID: "1", DisplayName: "Margin"}, {ID: "2", DisplayName: "IRA"}}, accounts)

	_, err = client.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_AccountWithoutPrincipals(t *testing.T) {
	broker := &mockBroker{
		accountFunc: func(ctx context.Context, accountID string, fields ...string) (*data.Account, error) {
			assert.Equal(t, []string{sources.FieldPositions}, fields)
			return &data.Account{ID: accountID, Positions: []data.Position{{Symbol: "GME"}}}, nil
		},
		userPrincipalsFunc: func(ctx context.Context) (map[string]string, error) {
			return nil, errors.New("forbidden")
		},
	}
	client := newTestClient(broker)

	positions, err := client.Positions(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, []data.Position{{Symbol: "GME"}}, positions)
}

func TestClient_AccountError(t *testing.T) {
	broker := &mockBroker{
		accountFunc: func(ctx context.Context, accountID string, fields ...string) (*data.Account, error) {
			return nil, sources.ErrAccountNotFound
		},
	}
	client := newTestClient(broker)

	_, err := client.Account(context.Background(), "404")
	assert.ErrorIs(t, err, sources.ErrAccountNotFound)
}

func TestClient_Quotes(t *testing.T) {
	var requested [][]string
	var mu sync.Mutex
	broker := &mockBroker{
		quotesFunc: func(ctx context.Context, symbols []string) (map[string]data.Quote, error) {
			mu.Lock()
			requested = append(requested, symbols)
			mu.Unlock()
			out := make(map[string]data.Quote)
			for _, s := range symbols {
				if s != "NOPE" {
					out[s] = data.Quote{Symbol: s, Mark: 10}
				}
			}
			return out, nil
		},
	}
	client := newTestClient(broker)

	q, err := client.Quote(context.Background(), "GME")
	require.NoError(t, err)
	assert.Equal(t, "GME", q.Symbol)

	quotes, err := client.Quotes(context.Background(), []string{"VTI", "GME", "NOPE", "AMC", "VTI"})
	require.NoError(t, err)

	assert.Len(t, quotes, 3)
	assert.Equal(t, [][]string{{"GME"}, {"AMC", "NOPE", "VTI"}}, requested)

	// batch results land in the per-symbol cache
	_, err = client.Quote(context.Background(), "AMC")
	require.NoError(t, err)
	assert.Len(t, requested, 2)

	_, err = client.Quote(context.Background(), "NOPE")
	assert.ErrorContains(t, err, "no quote for NOPE")
}

func TestClient_OptionChainCached(t *testing.T) {
	var calls atomic.Int32
	broker := &mockBroker{
		optionChainFunc: func(ctx context.Context, req sources.ChainRequest) (*data.OptionChain, error) {
			calls.Add(1)
			return &data.OptionChain{Symbol: req.Symbol, Contracts: []data.OptionContract{{Symbol: req.Symbol + "_C"}}}, nil
		},
	}
	client := newTestClient(broker)
	req := sources.ChainRequest{Symbol: "GME", ContractType: "PUT", FromDate: fixedNow, ToDate: fixedNow.AddDate(0, 0, 30)}

	for range 3 {
		contracts, err := client.Options(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, contracts, 1)
	}
	assert.Equal(t, int32(1), calls.Load())

	req.ContractType = "CALL"
	_, err := client.Options(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_PriceHistoryStoresAndReuses(t *testing.T) {
	candles := []data.Candle{
		{Symbol: "GME", Datetime: fixedNow.AddDate(0, 0, -1), Close: 2},
		{Symbol: "GME", Datetime: fixedNow.AddDate(0, 0, -2), Close: 1},
	}
	var calls atomic.Int32
	broker := &mockBroker{
		priceHistoryFunc: func(ctx context.Context, symbol string, start, end time.Time) ([]data.Candle, error) {
			calls.Add(1)
			assert.Equal(t, time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC), start)
			assert.Equal(t, fixedNow, end)
			return append([]data.Candle(nil), candles...), nil
		},
	}
	repo := &mockRepository{}

	got, err := newTestClient(broker, WithRepository(repo)).
		PriceHistoryEveryDay(context.Background(), "GME", time.Date(2020, 12, 1, 13, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, []float64{got[0].Close, got[1].Close})
	assert.Equal(t, 1, repo.saves)

	// a fresh client still has the stored history
	got, err = newTestClient(broker, WithRepository(repo)).
		PriceHistoryEveryDay(context.Background(), "GME", time.Date(2020, 12, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_PriceHistoryRefetchesStale(t *testing.T) {
	var calls atomic.Int32
	broker := &mockBroker{
		priceHistoryFunc: func(ctx context.Context, symbol string, start, end time.Time) ([]data.Candle, error) {
			calls.Add(1)
			return nil, nil
		},
	}
	start := time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)

	stale := &mockRepository{fetchedAt: fixedNow.Add(-time.Hour), start: start}
	_, err := newTestClient(broker, WithRepository(stale)).PriceHistoryEveryDay(context.Background(), "GME", start)
	require.NoError(t, err)

	// stored history starting later than requested does not cover the range
	short := &mockRepository{fetchedAt: fixedNow, start: start.AddDate(0, 0, 5)}
	_, err = newTestClient(broker, WithRepository(short)).PriceHistoryEveryDay(context.Background(), "GME", start)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_OrdersWindowAndInvalidation(t *testing.T) {
	var calls atomic.Int32
	broker := &mockBroker{
		ordersFunc: func(ctx context.Context, accountID string, from, to time.Time) ([]data.Order, error) {
			calls.Add(1)
			assert.Equal(t, fixedNow.AddDate(0, 0, -7), from)
			assert.Equal(t, fixedNow, to)
			return []data.Order{{ID: 1}}, nil
		},
		placeOrderFunc: func(ctx context.Context, accountID string, order orders.Order) (int64, error) {
			return 42, nil
		},
	}
	repo := &mockRepository{}
	client := newTestClient(broker, WithRepository(repo))

	_, err := client.Orders(context.Background(), "123")
	require.NoError(t, err)
	_, err = client.Orders(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	id, err := client.PlaceOrder(context.Background(), "123", orders.OptionSellToOpenLimit("GME_011521P100", 2, 1.2).Build())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = client.Orders(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	sent, err := client.SentOrders("123")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "GME_011521P100", sent[0].Symbol)
	assert.Equal(t, orders.SellToOpen, sent[0].Instruction)
	assert.Equal(t, 2.0, sent[0].Quantity)
	assert.Equal(t, "1.20", sent[0].Price)
	assert.Equal(t, fixedNow, sent[0].SentAt)
	assert.JSONEq(t, `{
		"session": "NORMAL",
		"duration": "DAY",
		"orderType": "LIMIT",
		"price": "1.20",
		"orderStrategyType": "SINGLE",
		"orderLegCollection": [{
			"instruction": "SELL_TO_OPEN",
			"quantity": 2,
			"instrument": {"symbol": "GME_011521P100", "assetType": "OPTION"}
		}]
	}`, sent[0].Payload)
}

func TestClient_PlaceOrderErrorIsNotRecorded(t *testing.T) {
	broker := &mockBroker{
		placeOrderFunc: func(ctx context.Context, accountID string, order orders.Order) (int64, error) {
			return 0, &sources.APIError{Op: "POST orders", StatusCode: 400, Body: "bad order"}
		},
	}
	repo := &mockRepository{}
	client := newTestClient(broker, WithRepository(repo))

	_, err := client.PlaceOrder(context.Background(), "123", orders.EquityBuyMarket("VTI", 1).Build())

	var apiErr *sources.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Empty(t, repo.sent)
}

func TestClient_CancelOrdersJoinsErrors(t *testing.T) {
	var cancelled []int64
	broker := &mockBroker{
		cancelOrderFunc: func(ctx context.Context, accountID string, orderID int64) error {
			cancelled = append(cancelled, orderID)
			if orderID == 2 {
				return errors.New("already filled")
			}
			return nil
		},
	}
	client := newTestClient(broker)

	err := client.CancelOrders(context.Background(), "123", 1, 2, 3)

	assert.ErrorContains(t, err, "cancelling order 2: already filled")
	assert.Equal(t, []int64{1, 2, 3}, cancelled)
}

func TestClient_IsEquitiesOpen(t *testing.T) {
	broker := &mockBroker{
		marketHoursFunc: func(ctx context.Context, market string, date time.Time) (*data.MarketHours, error) {
			assert.Equal(t, sources.MarketEquity, market)
			assert.Equal(t, time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), date)
			return &data.MarketHours{Market: market, Date: date, IsOpen: true}, nil
		},
	}

	open, err := newTestClient(broker).IsEquitiesOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
}

func TestClient_SentOrdersWithoutRepository(t *testing.T) {
	sent, err := newTestClient(&mockBroker{}).SentOrders("")
	assert.NoError(t, err)
	assert.Nil(t, sent)
}
