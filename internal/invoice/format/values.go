package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "Jan 2, 2006"

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatMoney renders an amount with two decimals and the currency symbol when known.
func FormatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	value := amount.StringFixed(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		value = amount.Abs().StringFixed(2)
	}
	if symbol, ok := currencySymbols[currency]; ok {
		return sign + symbol + value
	}
	return fmt.Sprintf("%s%s %s", sign, currency, value)
}

// FormatQuantity renders up to two decimals without trailing zeros.
func FormatQuantity(value decimal.Decimal) string {
	return strings.TrimRight(strings.TrimRight(value.StringFixed(2), "0"), ".")
}

// FormatDuration renders "<h>h <m>m", or "<m>m" under an hour. Seconds are dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func FormatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format(DateLayout)
}
