package cmd

import (
	"strings"
	"time"

	"github.com/kerbaras/stonkers/pkg/finder"
	"github.com/kerbaras/stonkers/pkg/format"
	"github.com/spf13/cobra"
)

var criteria = finder.DefaultCriteria()

var putsCmd = &cobra.Command{
	Use:   "puts [TICKERS...]",
	Short: "Find puts worth selling",
	Long:  "Scan the put chains of the tickers for contracts within the probability of profit range whose annualized return beats --return-min",
	RunE: func(cmd *cobra.Command, args []string) error {
		tickers := []string{"GME"}
		if len(args) > 0 {
			tickers = make([]string, len(args))
			for i, a := range args {
				tickers[i] = strings.ToUpper(a)
			}
		}

		client, closeRepo, err := newClient(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer closeRepo()

		puts, err := finder.FindPuts(cmd.Context(), client, tickers, criteria, time.Now())
		if err != nil {
			return err
		}

		return render(cmd, putsFrame(puts))
	},
}

func putsFrame(puts []finder.Put) *format.Frame {
	f := format.NewFrame("💸", "Underlying", "Strike", "Exp Date", "DTE", "Bid", "PoP %", "Ret. %", "Annual %")
	for _, p := range puts {
		f.Append(p.Symbol, p.UnderlyingLast, p.Strike, p.ExpirationDate, p.DTE, p.Bid, p.PoP, p.Return, p.Annual)
	}
	return f
}

func init() {
	putsCmd.Flags().IntVarP(&criteria.DTEMax, "dte", "d", criteria.DTEMax, "Maximum days to expiration")
	putsCmd.Flags().Float64VarP(&criteria.PoPMin, "pop-min", "p", criteria.PoPMin, "Minimum probability of profit, in percent")
	putsCmd.Flags().Float64VarP(&criteria.PoPMax, "pop-max", "P", criteria.PoPMax, "Maximum probability of profit, in percent")
	putsCmd.Flags().Float64VarP(&criteria.ReturnMin, "return-min", "r", criteria.ReturnMin, "Minimum annualized return, in percent")

	rootCmd.AddCommand(putsCmd)
}
