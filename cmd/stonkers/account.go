package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kerbaras/stonkers/pkg/app"
	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/format"
	"github.com/kerbaras/stonkers/pkg/orders"
	"github.com/kerbaras/stonkers/pkg/rebalance"
	"github.com/kerbaras/stonkers/pkg/services"
	"github.com/spf13/cobra"
)

var (
	accountID string
	funds     float64
	send      bool
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Inspect and manage accounts",
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the accounts linked to the token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeRepo, err := newClient(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer closeRepo()

		accounts, err := client.Accounts(cmd.Context())
		if err != nil {
			return err
		}

		f := format.NewFrame("Account ID", "Name", "Type", "Net Liquidation")
		for _, a := range accounts {
			f.Append(a.ID, a.DisplayName, a.Type, a.CurrentBalances.LiquidationValue)
		}
		return render(cmd, f)
	},
}

var accountOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List the orders sent through stonkers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := data.NewDuckDBRepository(settings.Database)
		if err != nil {
			return err
		}
		defer repo.Close()

		sent, err := repo.ListSentOrders(accountID)
		if err != nil {
			return err
		}

		f := format.NewFrame("Sent At", "Account", "Symbol", "Instruction", "Quantity", "Price")
		for _, o := range sent {
			f.Append(o.SentAt.Local().Format(time.DateTime), o.AccountID, o.Symbol, o.Instruction, o.Quantity, o.Price)
		}
		return render(cmd, f)
	},
}

func requireAccount() error {
	if accountID == "" {
		return fmt.Errorf("--account is required (see stonkers account list)")
	}
	return nil
}

// parseAllocations reads TICKER=WEIGHT arguments. Weights are normalized to
// sum to one.
func parseAllocations(args []string) (map[string]float64, error) {
	out := make(map[string]float64, len(args))
	var total float64
	for _, arg := range args {
		ticker, weight, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("allocation %q is not TICKER=WEIGHT", arg)
		}
		w, err := strconv.ParseFloat(weight, 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("invalid weight in %q", arg)
		}
		out[strings.ToUpper(ticker)] += w
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("weights sum to zero")
	}
	for t := range out {
		out[t] /= total
	}
	return out, nil
}

var accountRebalanceCmd = &cobra.Command{
	Use:   "rebalance TICKER=WEIGHT...",
	Short: "Compute the shares to buy to approach target allocations",
	Long:  "Compute how many shares of each ticker to buy with --funds so the account's holdings approach the given weights. With --send the market orders are placed after confirmation.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		allocations, err := parseAllocations(args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, closeRepo, err := newClient(ctx, true)
		if err != nil {
			return err
		}
		defer closeRepo()

		positions, err := client.Positions(ctx, accountID)
		if err != nil {
			return err
		}
		held := make(map[string]float64)
		for _, p := range positions {
			if !p.IsOption() {
				held[p.Symbol] += p.Quantity()
			}
		}

		tickers := make([]string, 0, len(allocations))
		for t := range allocations {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)

		quotes, err := client.Quotes(ctx, tickers)
		if err != nil {
			return err
		}
		prices := make(map[string]float64, len(quotes))
		for t, q := range quotes {
			prices[t] = q.Price()
		}
		for _, t := range tickers {
			if prices[t] <= 0 {
				return fmt.Errorf("no price for %s", t)
			}
		}

		buy := rebalance.Rebalance(allocations, funds, held, prices)

		f := format.NewFrame("Ticker", "Weight", "Price", "Held", "Buy", "Cost")
		var toSend []orders.Order
		for _, t := range tickers {
			f.Append(t, allocations[t], prices[t], held[t], buy[t], float64(buy[t])*prices[t])
			if buy[t] > 0 {
				toSend = append(toSend, orders.EquityBuyMarket(t, buy[t]).Build())
			}
		}
		if err := render(cmd, f); err != nil {
			return err
		}

		if !send || len(toSend) == 0 {
			return nil
		}
		return confirmAndSend(cmd, client, toSend, false)
	},
}

// confirmOrders asks about each candidate unless yes is set and returns the
// indexes of the accepted ones.
func confirmOrders(candidates []orders.Order, yes bool) ([]int, error) {
	ui := app.NewApp(os.Stdin, os.Stderr)

	var accepted []int
	for i, o := range candidates {
		if yes {
			accepted = append(accepted, i)
			continue
		}
		ok, err := ui.Confirm(orders.Describe(o) + "\nSend this order?")
		if err != nil {
			return nil, err
		}
		if ok {
			accepted = append(accepted, i)
		}
	}
	return accepted, nil
}

func sendOrders(cmd *cobra.Command, wheeler *services.Wheeler, toSend []orders.Order) error {
	if len(toSend) == 0 {
		fmt.Fprintln(os.Stderr, "No orders sent.")
		return nil
	}

	ids, err := wheeler.SendOrders(cmd.Context(), accountID, toSend)
	for i, id := range ids {
		if id != 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Sent order %d: %s\n", id, orders.DescribeLeg(toSend[i].OrderLegCollection[0]))
		}
	}
	return err
}

// confirmAndSend places orders, asking for each one unless yes is set.
func confirmAndSend(cmd *cobra.Command, client *services.Client, candidates []orders.Order, yes bool) error {
	accepted, err := confirmOrders(candidates, yes)
	if err != nil {
		return err
	}
	toSend := make([]orders.Order, len(accepted))
	for i, idx := range accepted {
		toSend[i] = candidates[idx]
	}

	wheeler := services.NewWheeler(client)
	defer wheeler.Close()
	return sendOrders(cmd, wheeler, toSend)
}

func init() {
	accountCmd.PersistentFlags().StringVar(&accountID, "account", "", "Account ID")

	accountRebalanceCmd.Flags().Float64Var(&funds, "funds", 0, "Funds to invest")
	accountRebalanceCmd.Flags().BoolVar(&send, "send", false, "Place the market orders after confirmation")
	_ = accountRebalanceCmd.MarkFlagRequired("funds")

	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountOrdersCmd)
	accountCmd.AddCommand(accountRebalanceCmd)

	rootCmd.AddCommand(accountCmd)
}
