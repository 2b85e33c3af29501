// Package currencyutils parses and formats yen amounts.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

var noise = regexp.MustCompile(`[¥￥円\s,]`)

// StandardizeAmount folds full-width characters to ASCII and removes yen
// symbols, whitespace and thousands separators, so "￥１，２３４" becomes "1234".
func StandardizeAmount(amountStr string) string {
	return noise.ReplaceAllString(width.Narrow.String(amountStr), "")
}

// ParseAmount parses a yen amount such as "¥1,234", "1,234円" or "980.5".
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	standardized := StandardizeAmount(amountStr)
	if standardized == "" {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': empty", amountStr)
	}
	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	return amount, nil
}

// ParseOptionalAmount is ParseAmount for inputs where blank means "not entered".
func ParseOptionalAmount(amountStr string) (*decimal.Decimal, error) {
	if strings.TrimSpace(amountStr) == "" {
		return nil, nil
	}
	amount, err := ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

// FormatYen formats amount as "¥1,234", keeping a fractional part only when
// there is one.
func FormatYen(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	whole := amount.Truncate(0)
	frac := amount.Sub(whole)

	s := "¥" + sign + groupThousands(whole.String())
	if !frac.IsZero() {
		s += strings.TrimPrefix(frac.String(), "0")
	}
	return s
}

// FormatOptionalYen formats amount, or "-" when it is nil.
func FormatOptionalYen(amount *decimal.Decimal) string {
	if amount == nil {
		return "-"
	}
	return FormatYen(*amount)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
