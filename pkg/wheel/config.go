// Package wheel decides which covered calls and cash secured puts to write
// for a ticker given the account and its positions.
package wheel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kerbaras/stonkers/pkg/conditions"
)

var ErrUnknownOption = errors.New("unknown option")

type Config struct {
	Ticker string
	// MaxContractsPercent is the share of buying power to spend on new
	// contracts in a single day.
	MaxContractsPercent float64
	// MinContractPrice should cover the broker's round trip commission.
	MinContractPrice float64
	// Sigma is the fraction of the standard deviation the price must move
	// before writing.
	Sigma        float64
	StdDevWindow int
	// Weight is the ticker's share of the portfolio.
	Weight float64
}

func DefaultConfig(ticker string) Config {
	return Config{
		Ticker:              ticker,
		MaxContractsPercent: 0.05,
		MinContractPrice:    0.05,
		Sigma:               0.1,
		StdDevWindow:        35,
		Weight:              0.2,
	}
}

// ConfigKey documents a key accepted by ParseConfig.
type ConfigKey struct {
	Name    string
	Default string
	Help    string
}

var ConfigKeys = []ConfigKey{
	{"max_contracts_percent", "0.05", "The maximum percent of the portfolio's buying power to spend on contracts in a single day."},
	{"min_contract_price", "0.05", "The minimum price of a contract to consider. Should be higher than the round trip commission."},
	{"sigma", "0.1", "The fraction of the standard deviation the price has to move before selling."},
	{"std_dev_window", "35", "The number of days used to calculate the standard deviation."},
	{"weight", "0.2", "The weight of the ticker in the portfolio."},
}

// ParseConfig reads TICKER[:key=value...].
func ParseConfig(s string) (Config, error) {
	parts := strings.Split(s, ":")
	ticker := strings.ToUpper(strings.TrimSpace(parts[0]))
	if ticker == "" {
		return Config{}, fmt.Errorf("missing ticker in %q", s)
	}
	cfg := DefaultConfig(ticker)

	for _, option := range parts[1:] {
		key, value, ok := strings.Cut(option, "=")
		if !ok {
			return Config{}, fmt.Errorf("option %q is not key=value", option)
		}

		var err error
		switch key {
		case "max_contracts_percent":
			cfg.MaxContractsPercent, err = strconv.ParseFloat(value, 64)
		case "min_contract_price":
			cfg.MinContractPrice, err = strconv.ParseFloat(value, 64)
		case "sigma":
			cfg.Sigma, err = strconv.ParseFloat(value, 64)
		case "std_dev_window":
			cfg.StdDevWindow, err = strconv.Atoi(value)
		case "weight":
			cfg.Weight, err = strconv.ParseFloat(value, 64)
		default:
			return Config{}, fmt.Errorf("%w: %s", ErrUnknownOption, key)
		}
		if err != nil {
			return Config{}, fmt.Errorf("could not convert value for field %q: %s", key, value)
		}
	}

	return cfg, nil
}

// Conditions are the filters every written contract has to pass.
func (c Config) Conditions() []conditions.Condition {
	return []conditions.Condition{
		conditions.DaysToExpiration(7, 65),
		conditions.ExcludeInTheMoney(),
		conditions.Delta(0.30, 0.05, true),
		conditions.MinimumPrice(c.MinContractPrice),
	}
}

func (c Config) CallConditions() []conditions.Condition {
	return append(c.Conditions(), conditions.IsCall())
}

func (c Config) PutConditions() []conditions.Condition {
	return append(c.Conditions(), conditions.IsPut())
}

// Dedupe keeps the last config of every ticker, in first-seen order.
func Dedupe(configs []Config) []Config {
	index := make(map[string]int, len(configs))
	var out []Config
	for _, c := range configs {
		if i, ok := index[c.Ticker]; ok {
			out[i] = c
			continue
		}
		index[c.Ticker] = len(out)
		out = append(out, c)
	}
	return out
}
