package store

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// The UI hands the ledger raw user-entered strings. Parsing lives here, at
// the input boundary, so every operation shares one policy: values that do
// not parse become zero and are then rejected (or not) by the operation's
// own validation.

var nonDigits = regexp.MustCompile(`[^0-9]`)

// ParseCurrency parses a Brazilian-format money string such as
// "R$ 1.234,56". The currency sign, spaces and thousand separators are
// stripped and the decimal comma becomes a point. Unparsable input yields
// zero.
func ParseCurrency(value string) decimal.Decimal {
	cleaned := strings.NewReplacer("R$", "", " ", "", ".", "").Replace(value)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseQuantity parses a numeric-only count field. Non-digit characters are
// stripped first; negative, unparsable or empty input yields zero.
func ParseQuantity(value string) int {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "-") {
		return 0
	}

	cleaned := nonDigits.ReplaceAllString(trimmed, "")
	if cleaned == "" {
		return 0
	}

	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}
