package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	positive = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	negative = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)

	printer = message.NewPrinter(language.English)
)

type NumberOpts struct {
	Precision int
	Percent   bool
	Currency  string
	// Color renders non-negative values green and negative values red.
	Color bool
}

// Number formats value with thousands separators. With a precision above two,
// trailing zeros are dropped down to two decimals.
func Number(value float64, opts NumberOpts) string {
	if opts.Percent {
		value *= 100
	}

	var text string
	switch {
	case math.IsNaN(value):
		text = "NaN"
	case math.IsInf(value, 0):
		text = "∞"
		if value < 0 {
			text = "-∞"
		}
	default:
		text = group(decimal.NewFromFloat(value).StringFixed(int32(opts.Precision)))
		if opts.Precision > 2 {
			text = trimZeros(text)
		}
	}

	text = opts.Currency + text
	if opts.Percent {
		text += "%"
	}

	if !opts.Color {
		return text
	}
	if value >= 0 {
		return positive.Render(text)
	}
	return negative.Render(text)
}

// Money formats value as dollars with two decimals.
func Money(value float64) string {
	return Number(value, NumberOpts{Precision: 2, Currency: "$"})
}

// Count formats value as a whole number.
func Count(value float64) string {
	return Number(value, NumberOpts{})
}

// group adds thousands separators to the whole part of a fixed point number.
func group(s string) string {
	whole, frac, hasFrac := strings.Cut(s, ".")

	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		sign := ""
		if strings.HasPrefix(whole, "-") {
			sign = "-"
			n = -n
		}
		whole = sign + printer.Sprintf("%d", n)
	}

	if hasFrac {
		return whole + "." + frac
	}
	return whole
}

func trimZeros(s string) string {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok {
		return s + ".00"
	}
	frac = strings.TrimRight(frac, "0")
	for len(frac) < 2 {
		frac += "0"
	}
	return whole + "." + frac
}
