package sources

import (
	"context"
	"time"

	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/orders"
	"github.com/kerbaras/stonkers/pkg/utils"
)

type APIError = utils.APIError

const (
	FieldPositions = "positions"
	FieldOrders    = "orders"

	MarketEquity = "EQUITY"
	MarketOption = "OPTION"
)

// ChainRequest selects part of an option chain.
type ChainRequest struct {
	Symbol       string
	ContractType string // CALL, PUT or ALL
	FromDate     time.Time
	ToDate       time.Time
	// OptionType is S for standard contracts, NS for non-standard and ALL.
	OptionType string
}

// Broker is a brokerage API.
type Broker interface {
	Accounts(ctx context.Context, fields ...string) ([]data.Account, error)
	Account(ctx context.Context, accountID string, fields ...string) (*data.Account, error)
	// UserPrincipals maps account ids to their display names.
	UserPrincipals(ctx context.Context) (map[string]string, error)

	OptionChain(ctx context.Context, req ChainRequest) (*data.OptionChain, error)
	Quotes(ctx context.Context, symbols []string) (map[string]data.Quote, error)
	PriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]data.Candle, error)
	MarketHours(ctx context.Context, market string, date time.Time) (*data.MarketHours, error)

	Orders(ctx context.Context, accountID string, from, to time.Time) ([]data.Order, error)
	PlaceOrder(ctx context.Context, accountID string, order orders.Order) (int64, error)
	CancelOrder(ctx context.Context, accountID string, orderID int64) error
}
