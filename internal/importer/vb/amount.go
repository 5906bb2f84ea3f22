package vb

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer(
	",", "",
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	"\u2212", "-",
)

// parseAmount reads amounts like "-1,200.50", "+ 35.00" or "1 200.50 MDL".
// Thousands separators and a trailing currency code are dropped.
func parseAmount(raw string) (decimal.Decimal, error) {
	clean := amountCleaner.Replace(strings.TrimSpace(raw))
	clean = strings.TrimRightFunc(clean, unicode.IsLetter)
	clean = strings.TrimPrefix(clean, "+")

	if clean == "" || clean == "-" {
		return decimal.Zero, fmt.Errorf("amount %q is empty", raw)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}

	return d, nil
}
