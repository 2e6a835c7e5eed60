package sources

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/rs/zerolog/log"
)

type accountEnvelope struct {
	SecuritiesAccount securitiesAccount `json:"securitiesAccount"`
}

type securitiesAccount struct {
	AccountID       string        `json:"accountId"`
	Type            string        `json:"type"`
	RoundTrips      int           `json:"roundTrips"`
	IsDayTrader     bool          `json:"isDayTrader"`
	CurrentBalances data.Balances `json:"currentBalances"`
	Positions       []position    `json:"positions"`
}

func (a *securitiesAccount) ToAccount() data.Account {
	account := data.Account{
		ID:              a.AccountID,
		Type:            a.Type,
		RoundTrips:      a.RoundTrips,
		IsDayTrader:     a.IsDayTrader,
		CurrentBalances: a.CurrentBalances,
	}
	for _, p := range a.Positions {
		account.Positions = append(account.Positions, p.ToPosition())
	}
	return account
}

type position struct {
	ShortQuantity float64 `json:"shortQuantity"`
	LongQuantity  float64 `json:"longQuantity"`
	AveragePrice  float64 `json:"averagePrice"`
	MarketValue   float64 `json:"marketValue"`
	Instrument    struct {
		AssetType string `json:"assetType"`
		Cusip     string `json:"cusip"`
		Symbol    string `json:"symbol"`
	} `json:"instrument"`
}

func (p *position) ToPosition() data.Position {
	out := data.Position{
		Symbol:        p.Instrument.Symbol,
		Underlying:    p.Instrument.Symbol,
		AssetType:     p.Instrument.AssetType,
		Cusip:         p.Instrument.Cusip,
		LongQuantity:  p.LongQuantity,
		ShortQuantity: p.ShortQuantity,
		AveragePrice:  p.AveragePrice,
		MarketValue:   p.MarketValue,
	}

	ticker, err := data.ParseTicker(p.Instrument.Symbol)
	if err != nil {
		log.Warn().Str("symbol", p.Instrument.Symbol).Msg("unrecognized position symbol")
		return out
	}

	out.Underlying = ticker.Underlying
	if out.AssetType == "" {
		out.AssetType = ticker.AssetType
	}
	if ticker.AssetType == data.AssetOption {
		out.ContractType = ticker.ContractType
		out.Strike = ticker.Strike
		if exp, err := ticker.ExpirationDate(); err == nil {
			out.ExpirationDate = exp
		}
	}
	return out
}

type contract struct {
	PutCall          string     `json:"putCall"`
	Symbol           string     `json:"symbol"`
	Description      string     `json:"description"`
	Bid              data.Float `json:"bid"`
	Ask              data.Float `json:"ask"`
	Last             data.Float `json:"last"`
	Mark             data.Float `json:"mark"`
	BidSize          int        `json:"bidSize"`
	AskSize          int        `json:"askSize"`
	TotalVolume      int        `json:"totalVolume"`
	OpenInterest     int        `json:"openInterest"`
	Volatility       data.Float `json:"volatility"`
	Delta            data.Float `json:"delta"`
	Gamma            data.Float `json:"gamma"`
	Theta            data.Float `json:"theta"`
	Vega             data.Float `json:"vega"`
	Rho              data.Float `json:"rho"`
	StrikePrice      data.Float `json:"strikePrice"`
	ExpirationDate   int64      `json:"expirationDate"`
	DaysToExpiration int        `json:"daysToExpiration"`
	InTheMoney       bool       `json:"inTheMoney"`
	IntrinsicValue   data.Float `json:"intrinsicValue"`
	Multiplier       data.Float `json:"multiplier"`
}

func (c *contract) ToOptionContract(underlying *data.Underlying) data.OptionContract {
	return data.OptionContract{
		PutCall:          c.PutCall,
		Symbol:           c.Symbol,
		Description:      c.Description,
		Bid:              float64(c.Bid),
		Ask:              float64(c.Ask),
		Last:             float64(c.Last),
		Mark:             float64(c.Mark),
		BidSize:          c.BidSize,
		AskSize:          c.AskSize,
		TotalVolume:      c.TotalVolume,
		OpenInterest:     c.OpenInterest,
		Volatility:       float64(c.Volatility),
		Delta:            float64(c.Delta),
		Gamma:            float64(c.Gamma),
		Theta:            float64(c.Theta),
		Vega:             float64(c.Vega),
		Rho:              float64(c.Rho),
		StrikePrice:      float64(c.StrikePrice),
		ExpirationDate:   time.UnixMilli(c.ExpirationDate),
		DaysToExpiration: c.DaysToExpiration,
		InTheMoney:       c.InTheMoney,
		IntrinsicValue:   float64(c.IntrinsicValue),
		Multiplier:       float64(c.Multiplier),
		Underlying:       underlying,
	}
}

// expDateMap is keyed by "yyyy-mm-dd:dte" and then by strike.
type expDateMap map[string]map[string][]contract

type chain struct {
	Symbol         string           `json:"symbol"`
	Status         string           `json:"status"`
	Underlying     *data.Underlying `json:"underlying"`
	CallExpDateMap expDateMap       `json:"callExpDateMap"`
	PutExpDateMap  expDateMap       `json:"putExpDateMap"`
}

// ToOptionChain flattens calls and then puts, each ordered by expiration and
// strike.
func (c *chain) ToOptionChain() *data.OptionChain {
	out := &data.OptionChain{Symbol: c.Symbol, Underlying: c.Underlying}
	out.Contracts = append(out.Contracts, c.CallExpDateMap.flatten(c.Underlying)...)
	out.Contracts = append(out.Contracts, c.PutExpDateMap.flatten(c.Underlying)...)
	return out
}

func (m expDateMap) flatten(underlying *data.Underlying) []data.OptionContract {
	dates := make([]string, 0, len(m))
	for date := range m {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var out []data.OptionContract
	for _, date := range dates {
		strikes := make([]string, 0, len(m[date]))
		for strike := range m[date] {
			strikes = append(strikes, strike)
		}
		sort.Slice(strikes, func(i, j int) bool {
			return strikeValue(strikes[i]) < strikeValue(strikes[j])
		})

		for _, strike := range strikes {
			for i := range m[date][strike] {
				out = append(out, m[date][strike][i].ToOptionContract(underlying))
			}
		}
	}
	return out
}

func strikeValue(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

type candle struct {
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	Datetime int64   `json:"datetime"`
}

func (c *candle) ToCandle(symbol string) data.Candle {
	return data.Candle{
		Symbol:   symbol,
		Datetime: time.UnixMilli(c.Datetime).UTC(),
		Open:     c.Open,
		High:     c.High,
		Low:      c.Low,
		Close:    c.Close,
		Volume:   c.Volume,
	}
}

type order struct {
	OrderID           int64           `json:"orderId"`
	AccountID         json.Number     `json:"accountId"`
	Status            string          `json:"status"`
	EnteredTime       string          `json:"enteredTime"`
	OrderType         string          `json:"orderType"`
	Duration          string          `json:"duration"`
	Price             float64         `json:"price"`
	OrderStrategyType string          `json:"orderStrategyType"`
	Legs              []data.OrderLeg `json:"orderLegCollection"`
}

// entered times look like 2021-01-15T14:30:00+0000
const enteredTimeLayout = "2006-01-02T15:04:05-0700"

func (o *order) ToOrder() data.Order {
	entered, err := time.Parse(enteredTimeLayout, o.EnteredTime)
	if err != nil {
		entered, _ = time.Parse(time.RFC3339, o.EnteredTime)
	}
	return data.Order{
		ID:                o.OrderID,
		AccountID:         strings.TrimSpace(o.AccountID.String()),
		Status:            o.Status,
		EnteredTime:       entered,
		OrderType:         o.OrderType,
		Duration:          o.Duration,
		Price:             o.Price,
		OrderStrategyType: o.OrderStrategyType,
		Legs:              o.Legs,
	}
}
