// Package cli provides the treasuryctl commands and their terminal rendering.
package cli

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NewPrinter returns a printer for the given BCP 47 locale, falling back to English.
func NewPrinter(locale string) *message.Printer {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// FormatMoney renders integer cents as a localized amount followed by the currency code.
// e.g., 123450 "EUR" -> "1,234.50 EUR" in English
func FormatMoney(p *message.Printer, cents int64, currency string) string {
	whole, frac := cents/100, cents%100
	if whole < 0 {
		whole = -whole
	}
	if frac < 0 {
		frac = -frac
	}
	out := p.Sprint(number.Decimal(whole)) + decimalSeparator(p) + fmt.Sprintf("%02d", frac)
	if cents < 0 {
		out = "-" + out
	}
	if currency == "" {
		return out
	}
	return out + " " + currency
}

// decimalSeparator extracts the locale's separator from a formatted 1.5.
func decimalSeparator(p *message.Printer) string {
	sample := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	return strings.TrimSuffix(strings.TrimPrefix(sample, "1"), "5")
}

// FormatDueIn describes how far away a due date is.
func FormatDueIn(days int) string {
	switch {
	case days < 0:
		return "overdue"
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
