package data

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	AssetEquity = "EQUITY"
	AssetOption = "OPTION"

	ContractCall = "CALL"
	ContractPut  = "PUT"
)

var ErrInvalidTicker = errors.New("unrecognized ticker format")

// Float decodes JSON numbers as well as the quoted "NaN" the broker sends for
// greeks it could not compute.
type Float float64

func (f *Float) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = Float(math.NaN())
		return nil
	}
	*f = Float(v)
	return nil
}

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type Balances struct {
	AvailableFunds         float64 `json:"availableFunds"`
	BuyingPower            float64 `json:"buyingPower"`
	MaintenanceRequirement float64 `json:"maintenanceRequirement"`
	MoneyMarketFund        float64 `json:"moneyMarketFund"`
	LiquidationValue       float64 `json:"liquidationValue"`
	Savings                float64 `json:"savings"`
}

type Account struct {
	ID              string     `json:"accountId"`
	DisplayName     string     `json:"displayName"`
	Type            string     `json:"type"`
	RoundTrips      int        `json:"roundTrips"`
	IsDayTrader     bool       `json:"isDayTrader"`
	CurrentBalances Balances   `json:"currentBalances"`
	Positions       []Position `json:"positions,omitempty"`
}

// Ticker is a parsed equity or option symbol.
type Ticker struct {
	AssetType    string
	Symbol       string
	Underlying   string
	Expiration   string // MMDDYY
	ContractType string
	Strike       float64
}

// ExpirationDate parses the MMDDYY expiration of an option ticker.
func (t Ticker) ExpirationDate() (time.Time, error) {
	return time.Parse("010206", t.Expiration)
}

// ParseTicker splits a symbol like GME_011521P100 into its parts. Symbols
// without an underscore are equities.
func ParseTicker(symbol string) (Ticker, error) {
	if !strings.Contains(symbol, "_") {
		return Ticker{AssetType: AssetEquity, Symbol: symbol, Underlying: symbol}, nil
	}

	parts := strings.Split(symbol, "_")
	if len(parts) != 2 {
		return Ticker{}, ErrInvalidTicker
	}

	underlying, remainder := parts[0], parts[1]

	var contractType, sep string
	switch {
	case strings.Contains(remainder, "P"):
		contractType, sep = ContractPut, "P"
	case strings.Contains(remainder, "C"):
		contractType, sep = ContractCall, "C"
	default:
		return Ticker{}, ErrInvalidTicker
	}

	expiration, strikeText, _ := strings.Cut(remainder, sep)
	strike, err := strconv.ParseFloat(strikeText, 64)
	if err != nil {
		return Ticker{}, ErrInvalidTicker
	}

	return Ticker{
		AssetType:    AssetOption,
		Symbol:       symbol,
		Underlying:   underlying,
		Expiration:   expiration,
		ContractType: contractType,
		Strike:       strike,
	}, nil
}

type Position struct {
	Symbol         string
	Underlying     string
	AssetType      string
	Cusip          string
	ContractType   string
	Strike         float64
	ExpirationDate time.Time
	LongQuantity   float64
	ShortQuantity  float64
	AveragePrice   float64
	MarketValue    float64
}

// Quantity is the signed position size.
func (p Position) Quantity() float64 {
	return p.LongQuantity - p.ShortQuantity
}

func (p Position) IsOption() bool {
	return p.AssetType == AssetOption
}

type Quote struct {
	Symbol      string  `json:"symbol"`
	AssetType   string  `json:"assetType"`
	Bid         float64 `json:"bidPrice"`
	Ask         float64 `json:"askPrice"`
	Last        float64 `json:"lastPrice"`
	Mark        float64 `json:"mark"`
	Close       float64 `json:"closePrice"`
	TotalVolume int64   `json:"totalVolume"`
}

// Price is the quote's market price.
func (q Quote) Price() float64 {
	return MarketPrice(q.Bid, q.Ask, q.Last, q.Mark)
}

// MarketPrice uses the last trade when it sits inside the spread and the mark
// otherwise.
func MarketPrice(bid, ask, last, mark float64) float64 {
	if bid < last && last < ask {
		return last
	}
	return mark
}

type Underlying struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
	Mark   float64 `json:"mark"`
	Close  float64 `json:"close"`
}

type OptionContract struct {
	PutCall          string    `json:"putCall"`
	Symbol           string    `json:"symbol"`
	Description      string    `json:"description"`
	Bid              float64   `json:"bid"`
	Ask              float64   `json:"ask"`
	Last             float64   `json:"last"`
	Mark             float64   `json:"mark"`
	BidSize          int       `json:"bidSize"`
	AskSize          int       `json:"askSize"`
	TotalVolume      int       `json:"totalVolume"`
	OpenInterest     int       `json:"openInterest"`
	Volatility       float64   `json:"volatility"`
	Delta            float64   `json:"delta"`
	Gamma            float64   `json:"gamma"`
	Theta            float64   `json:"theta"`
	Vega             float64   `json:"vega"`
	Rho              float64   `json:"rho"`
	StrikePrice      float64   `json:"strikePrice"`
	ExpirationDate   time.Time `json:"expirationDate"`
	DaysToExpiration int       `json:"daysToExpiration"`
	InTheMoney       bool      `json:"inTheMoney"`
	IntrinsicValue   float64   `json:"intrinsicValue"`
	Multiplier       float64   `json:"multiplier"`

	Underlying *Underlying `json:"underlying,omitempty"`
}

func (o *OptionContract) Price() float64 {
	return MarketPrice(o.Bid, o.Ask, o.Last, o.Mark)
}

func (o *OptionContract) IsCall() bool {
	return strings.EqualFold(o.PutCall, ContractCall)
}

func (o *OptionContract) IsPut() bool {
	return strings.EqualFold(o.PutCall, ContractPut)
}

type OptionChain struct {
	Symbol     string
	Underlying *Underlying
	Contracts  []OptionContract
}

type Candle struct {
	Symbol   string    `json:"symbol"`
	Datetime time.Time `json:"datetime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
}

type Instrument struct {
	Symbol           string `json:"symbol"`
	AssetType        string `json:"assetType"`
	PutCall          string `json:"putCall,omitempty"`
	UnderlyingSymbol string `json:"underlyingSymbol,omitempty"`
}

type OrderLeg struct {
	Instruction string     `json:"instruction"`
	Quantity    float64    `json:"quantity"`
	Instrument  Instrument `json:"instrument"`
}

// Order is an order as reported by the broker.
type Order struct {
	ID                int64      `json:"orderId"`
	AccountID         string     `json:"accountId,omitempty"`
	Status            string     `json:"status"`
	EnteredTime       time.Time  `json:"enteredTime"`
	OrderType         string     `json:"orderType"`
	Duration          string     `json:"duration"`
	Price             float64    `json:"price"`
	OrderStrategyType string     `json:"orderStrategyType"`
	Legs              []OrderLeg `json:"orderLegCollection"`
}

type MarketHours struct {
	Market string
	Date   time.Time
	IsOpen bool
}

// SentOrder is the local record of an order placed through stonkers.
type SentOrder struct {
	AccountID   string
	Symbol      string
	Instruction string
	Quantity    float64
	Price       string
	Payload     string
	SentAt      time.Time
}
