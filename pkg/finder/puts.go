// Package finder searches option chains for puts worth selling.
package finder

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/sources"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ChainLoader interface {
	OptionChain(ctx context.Context, req sources.ChainRequest) (*data.OptionChain, error)
}

type Criteria struct {
	DTEMin    int
	DTEMax    int
	PoPMin    float64
	PoPMax    float64
	ReturnMin float64
}

func DefaultCriteria() Criteria {
	return Criteria{DTEMin: 0, DTEMax: 60, PoPMin: 70, PoPMax: 90, ReturnMin: 20}
}

type Put struct {
	Symbol         string
	Underlying     string
	UnderlyingLast float64
	Strike         float64
	ExpirationDate string
	DTE            int
	Bid            float64
	PoP            float64
	Return         float64
	Annual         float64
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Returns computes the return of selling a put at bid and its annualized
// rate, both in percent with one decimal.
func Returns(bid, strike float64, dte int) (float64, float64) {
	ret := bid / (strike - bid) * 100
	days := dte
	if days <= 0 {
		days = 1
	}
	return round1(ret), round1(ret / float64(days) * 365)
}

// FindPuts loads the standard put chain of every ticker and returns the
// contracts meeting the criteria, best annual return first.
func FindPuts(ctx context.Context, client ChainLoader, tickers []string, criteria Criteria, now time.Time) ([]Put, error) {
	chains := make([]*data.OptionChain, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ticker := range tickers {
		g.Go(func() error {
			chain, err := client.OptionChain(gctx, sources.ChainRequest{
				Symbol:       ticker,
				ContractType: data.ContractPut,
				FromDate:     now.AddDate(0, 0, criteria.DTEMin-1),
				ToDate:       now.AddDate(0, 0, criteria.DTEMax+1),
				OptionType:   "S",
			})
			if err != nil {
				return err
			}
			chains[i] = chain
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Put
	for i, chain := range chains {
		for _, o := range chain.Contracts {
			if !o.IsPut() {
				continue
			}

			put := Put{
				Symbol:         o.Symbol,
				Underlying:     tickers[i],
				Strike:         o.StrikePrice,
				ExpirationDate: o.ExpirationDate.Format(time.DateOnly),
				DTE:            o.DaysToExpiration,
				Bid:            o.Bid,
				PoP:            (1 - math.Abs(o.Delta)) * 100,
			}
			if chain.Underlying != nil {
				put.UnderlyingLast = chain.Underlying.Last
			}
			put.Return, put.Annual = Returns(o.Bid, o.StrikePrice, o.DaysToExpiration)

			if put.Annual >= criteria.ReturnMin && criteria.PoPMin <= put.PoP && put.PoP <= criteria.PoPMax {
				out = append(out, put)
			}
		}
		log.Debug().Str("symbol", tickers[i]).Int("contracts", len(chain.Contracts)).Msg("scanned puts")
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Annual > out[j].Annual })
	return out, nil
}
