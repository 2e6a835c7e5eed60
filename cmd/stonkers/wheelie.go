package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kerbaras/stonkers/pkg/app"
	"github.com/kerbaras/stonkers/pkg/app/styles"
	"github.com/kerbaras/stonkers/pkg/format"
	"github.com/kerbaras/stonkers/pkg/orders"
	"github.com/kerbaras/stonkers/pkg/services"
	"github.com/kerbaras/stonkers/pkg/wheel"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	autoSend      bool
	replaceOrders bool
)

func wheelieLong() string {
	var b strings.Builder
	b.WriteString("Run the wheel on each ticker: write cash secured puts when the underlying drops and covered calls when it rallies.\n\n")
	b.WriteString("Tickers accept options as TICKER:key=value:key=value. Options:\n\n")
	for _, k := range wheel.ConfigKeys {
		fmt.Fprintf(&b, "  %-22s %s (default %s)\n", k.Name, k.Help, k.Default)
	}
	return b.String()
}

var wheelieCmd = &cobra.Command{
	Use:   "wheelie TICKER[:key=value...]...",
	Short: "Sell puts and covered calls on a schedule",
	Long:  wheelieLong(),
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}

		configs := make([]wheel.Config, len(args))
		for i, arg := range args {
			cfg, err := wheel.ParseConfig(arg)
			if err != nil {
				return err
			}
			configs[i] = cfg
		}

		ctx := cmd.Context()
		client, closeRepo, err := newClient(ctx, true)
		if err != nil {
			return err
		}
		defer closeRepo()

		wheeler := services.NewWheeler(client,
			services.WithMarginUsage(settings.MarginUsage),
			services.WithReplace(replaceOrders),
		)
		defer wheeler.Close()

		var (
			summary *wheel.AccountSummary
			wheels  []*wheel.Wheel
		)
		if output == format.Console && isatty.IsTerminal(os.Stderr.Fd()) {
			summary, wheels, err = app.NewApp(os.Stdin, os.Stderr).RunWheelie(ctx, wheeler, accountID, configs)
		} else {
			go logProgress(wheeler.Progress())
			summary, wheels, err = wheeler.Run(ctx, accountID, configs)
		}
		if err != nil {
			return err
		}

		if output == format.Console {
			holdings, err := wheeler.Holdings(ctx, accountID, tickersOf(wheels))
			if err != nil {
				return err
			}
			if err := renderHoldings(cmd, holdings); err != nil {
				return err
			}
		}
		if err := renderWheels(cmd, summary, wheels); err != nil {
			return err
		}

		var (
			options  []*wheel.ToWrite
			triggers []orders.Order
		)
		for _, wh := range wheels {
			for _, o := range wh.Options {
				if o.NumContracts > 0 {
					options = append(options, o)
					triggers = append(triggers, o.TriggerOrder(settings.ProfitTarget).Build())
				}
			}
		}
		if len(triggers) == 0 {
			return nil
		}

		accepted, err := confirmOrders(triggers, autoSend)
		if err != nil {
			return err
		}
		toSend := make([]orders.Order, len(accepted))
		replaced := make([]*wheel.ToWrite, len(accepted))
		for i, idx := range accepted {
			toSend[i] = triggers[idx]
			replaced[i] = options[idx]
		}
		if err := wheeler.CancelReplaced(ctx, accountID, replaced); err != nil {
			return err
		}
		return sendOrders(cmd, wheeler, toSend)
	},
}

func tickersOf(wheels []*wheel.Wheel) []string {
	out := make([]string, len(wheels))
	for i, wh := range wheels {
		out[i] = wh.Symbol()
	}
	return out
}

func holdingsFrame(holdings []wheel.Holding) *format.Frame {
	price := format.NumberOpts{Precision: 5, Currency: "$"}
	f := format.NewFrame("Symbol", "R", "Qty", "MktPrice", "AvgPrice", "Value", "Cost", "Unrealized P&L", "P&L", "Strike", "Exp", "DTE", "ITM?")
	for _, h := range holdings {
		row := []any{
			h.Symbol,
			h.Right,
			format.Number(h.Quantity, format.NumberOpts{}),
			format.Number(h.MarketPrice, price),
			format.Number(h.AveragePrice, price),
			format.Number(h.Value, price),
			format.Number(h.Cost, price),
			format.Number(h.Profit, price),
			format.Number(h.ProfitPercent, format.NumberOpts{Precision: 2, Percent: true}),
		}
		if h.IsOption() {
			itm := ""
			if h.ITM {
				itm = "✔"
			}
			row = append(row, format.Number(h.Strike, price), h.Expiration.Format(time.DateOnly), h.DTE, itm)
		} else {
			row = append(row, "", "", "", "")
		}
		f.Append(row...)
	}
	return f
}

func renderHoldings(cmd *cobra.Command, holdings []wheel.Holding) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.TitleStyle.Render("Positions"))
	if err := format.Render(out, output, holdingsFrame(holdings)); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func logProgress(updates <-chan services.Progress) {
	for p := range updates {
		if p.Err != nil {
			log.Error().Err(p.Err).Str("symbol", p.Ticker).Msg("wheel failed")
			continue
		}
		log.Debug().Str("symbol", p.Ticker).Str("status", p.Status).Int("step", p.Step).Msg("wheel progress")
	}
}

func renderWheels(cmd *cobra.Command, summary *wheel.AccountSummary, wheels []*wheel.Wheel) error {
	out := cmd.OutOrStdout()

	if output == format.Console {
		account := format.NewFrame("Account", "Net Liquidation", "Buying Power", "Available Funds", "Target Buying Power", "Day Trades Left")
		account.Append(summary.ID(), summary.NetLiquidation(), summary.BuyingPower(), summary.AvailableFunds(), summary.TargetBuyingPower(), summary.DayTradesLeft())
		if err := format.Render(out, output, account); err != nil {
			return err
		}
		fmt.Fprintln(out)
		return app.RenderWheels(out, wheels)
	}

	f := format.NewFrame("Ticker", "Message", "Symbol", "Contracts", "Price", "Total", "RoR")
	for _, wh := range wheels {
		for _, m := range wh.Messages {
			if m.Kind != wheel.KindWrite {
				f.Append(wh.Symbol(), m.Text, nil, nil, nil, nil, nil)
			}
		}
		for _, o := range wh.Options {
			f.Append(wh.Symbol(), o.String(), o.Symbol(), o.NumContracts, o.Price(), o.Total(), o.RoR)
		}
	}
	return render(cmd, f)
}

func init() {
	wheelieCmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	wheelieCmd.Flags().BoolVarP(&autoSend, "yes", "y", false, "Send the orders without asking")
	wheelieCmd.Flags().BoolVar(&replaceOrders, "replace", false, "Cancel and replace open orders on the chosen contracts")

	rootCmd.AddCommand(wheelieCmd)
}
