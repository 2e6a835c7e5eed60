package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/orders"
	"github.com/kerbaras/stonkers/pkg/utils"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://api.tdameritrade.com/v1"

var ErrAccountNotFound = errors.New("account not found")

type TDAmeritrade struct {
	api *utils.API
}

// NewTDAmeritrade talks to the API at baseURL through client, which is
// expected to add authorization.
func NewTDAmeritrade(client *http.Client, baseURL string, opts ...utils.Option) *TDAmeritrade {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &TDAmeritrade{api: utils.NewAPI(client, baseURL, opts...)}
}

func fieldParams(fields []string) url.Values {
	params := url.Values{}
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	return params
}

func (t *TDAmeritrade) Accounts(ctx context.Context, fields ...string) ([]data.Account, error) {
	var envelopes []accountEnvelope
	if err := t.api.Get(ctx, "/accounts", fieldParams(fields), &envelopes); err != nil {
		return nil, err
	}

	out := make([]data.Account, 0, len(envelopes))
	for _, e := range envelopes {
		out = append(out, e.SecuritiesAccount.ToAccount())
	}
	return out, nil
}

func (t *TDAmeritrade) Account(ctx context.Context, accountID string, fields ...string) (*data.Account, error) {
	var envelope accountEnvelope
	err := t.api.Get(ctx, "/accounts/"+url.PathEscape(accountID), fieldParams(fields), &envelope)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return nil, err
	}

	account := envelope.SecuritiesAccount.ToAccount()
	return &account, nil
}

func (t *TDAmeritrade) UserPrincipals(ctx context.Context) (map[string]string, error) {
	var principals struct {
		Accounts []struct {
			AccountID   string `json:"accountId"`
			DisplayName string `json:"displayName"`
		} `json:"accounts"`
	}
	if err := t.api.Get(ctx, "/userprincipals", nil, &principals); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(principals.Accounts))
	for _, a := range principals.Accounts {
		names[a.AccountID] = a.DisplayName
	}
	return names, nil
}

func (t *TDAmeritrade) OptionChain(ctx context.Context, req ChainRequest) (*data.OptionChain, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("includeQuotes", "TRUE")
	if req.ContractType != "" {
		params.Set("contractType", req.ContractType)
	}
	if !req.FromDate.IsZero() {
		params.Set("fromDate", req.FromDate.Format(time.DateOnly))
	}
	if !req.ToDate.IsZero() {
		params.Set("toDate", req.ToDate.Format(time.DateOnly))
	}
	if req.OptionType != "" {
		params.Set("optionType", req.OptionType)
	}

	var raw chain
	if err := t.api.Get(ctx, "/marketdata/chains", params, &raw); err != nil {
		return nil, err
	}

	out := raw.ToOptionChain()
	if out.Symbol == "" {
		out.Symbol = req.Symbol
	}
	log.Debug().Str("symbol", req.Symbol).Int("contracts", len(out.Contracts)).Msg("option chain")
	return out, nil
}

func (t *TDAmeritrade) Quotes(ctx context.Context, symbols []string) (map[string]data.Quote, error) {
	if len(symbols) == 0 {
		return map[string]data.Quote{}, nil
	}

	params := url.Values{}
	params.Set("symbol", strings.Join(symbols, ","))

	var quotes map[string]data.Quote
	if err := t.api.Get(ctx, "/marketdata/quotes", params, &quotes); err != nil {
		return nil, err
	}
	for symbol, q := range quotes {
		if q.Symbol == "" {
			q.Symbol = symbol
			quotes[symbol] = q
		}
	}
	return quotes, nil
}

// PriceHistory returns daily candles between start and end.
func (t *TDAmeritrade) PriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]data.Candle, error) {
	params := url.Values{}
	params.Set("periodType", "month")
	params.Set("frequencyType", "daily")
	params.Set("frequency", "1")
	params.Set("startDate", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endDate", strconv.FormatInt(end.UnixMilli(), 10))

	var history struct {
		Candles []candle `json:"candles"`
		Symbol  string   `json:"symbol"`
		Empty   bool     `json:"empty"`
	}
	if err := t.api.Get(ctx, "/marketdata/"+url.PathEscape(symbol)+"/pricehistory", params, &history); err != nil {
		return nil, err
	}

	out := make([]data.Candle, 0, len(history.Candles))
	for _, c := range history.Candles {
		out = append(out, c.ToCandle(symbol))
	}
	return out, nil
}

func (t *TDAmeritrade) MarketHours(ctx context.Context, market string, date time.Time) (*data.MarketHours, error) {
	params := url.Values{}
	params.Set("date", date.Format(time.DateOnly))

	var hours map[string]map[string]struct {
		Date       string `json:"date"`
		MarketType string `json:"marketType"`
		IsOpen     bool   `json:"isOpen"`
	}
	if err := t.api.Get(ctx, "/marketdata/"+url.PathEscape(market)+"/hours", params, &hours); err != nil {
		return nil, err
	}

	out := &data.MarketHours{Market: market, Date: date}
	for _, products := range hours {
		for _, product := range products {
			if product.IsOpen {
				out.IsOpen = true
			}
		}
	}
	return out, nil
}

func (t *TDAmeritrade) Orders(ctx context.Context, accountID string, from, to time.Time) ([]data.Order, error) {
	params := url.Values{}
	if !from.IsZero() {
		params.Set("fromEnteredTime", from.Format(time.DateOnly))
	}
	if !to.IsZero() {
		params.Set("toEnteredTime", to.Format(time.DateOnly))
	}

	var raw []order
	if err := t.api.Get(ctx, "/accounts/"+url.PathEscape(accountID)+"/orders", params, &raw); err != nil {
		return nil, err
	}

	out := make([]data.Order, 0, len(raw))
	for _, o := range raw {
		out = append(out, o.ToOrder())
	}
	return out, nil
}

// PlaceOrder submits order and returns the id the broker assigned to it, or
// zero when the response does not say.
func (t *TDAmeritrade) PlaceOrder(ctx context.Context, accountID string, o orders.Order) (int64, error) {
	header, err := t.api.Post(ctx, "/accounts/"+url.PathEscape(accountID)+"/orders", o, nil)
	if err != nil {
		return 0, err
	}

	location := header.Get("Location")
	if location == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(path.Base(location), 10, 64)
	if err != nil {
		log.Warn().Str("location", location).Msg("unexpected order location")
		return 0, nil
	}

	log.Info().Str("account", accountID).Int64("order", id).Msg("order placed")
	return id, nil
}

func (t *TDAmeritrade) CancelOrder(ctx context.Context, accountID string, orderID int64) error {
	p := fmt.Sprintf("/accounts/%s/orders/%d", url.PathEscape(accountID), orderID)
	if err := t.api.Delete(ctx, p); err != nil {
		return err
	}
	log.Info().Str("account", accountID).Int64("order", orderID).Msg("order cancelled")
	return nil
}
