package wheel

import "github.com/kerbaras/stonkers/pkg/data"

const DefaultMarginUsage = 0.5

// AccountSummary exposes the balances the wheel sizes positions against.
type AccountSummary struct {
	Account     *data.Account
	MarginUsage float64
}

func NewAccountSummary(account *data.Account, marginUsage float64) *AccountSummary {
	return &AccountSummary{Account: account, MarginUsage: marginUsage}
}

func (a *AccountSummary) ID() string          { return a.Account.ID }
func (a *AccountSummary) DisplayName() string { return a.Account.DisplayName }
func (a *AccountSummary) Type() string        { return a.Account.Type }
func (a *AccountSummary) IsDayTrader() bool   { return a.Account.IsDayTrader }
func (a *AccountSummary) RoundTrips() int     { return a.Account.RoundTrips }

func (a *AccountSummary) NetLiquidation() float64 {
	return a.Account.CurrentBalances.LiquidationValue
}

func (a *AccountSummary) BuyingPower() float64 {
	return a.Account.CurrentBalances.BuyingPower
}

func (a *AccountSummary) MaintenanceRequirement() float64 {
	return a.Account.CurrentBalances.MaintenanceRequirement
}

func (a *AccountSummary) AvailableFunds() float64 {
	return a.Account.CurrentBalances.AvailableFunds
}

// DayTradesLeft assumes the pattern day trader limit of three round trips.
func (a *AccountSummary) DayTradesLeft() int {
	return 3 - a.Account.RoundTrips
}

func (a *AccountSummary) TargetBuyingPower() float64 {
	return a.NetLiquidation() * a.MarginUsage
}
