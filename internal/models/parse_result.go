package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParseResult holds the fields a text parser managed to extract.
type ParseResult struct {
	Amount     *decimal.Decimal
	Date       *time.Time
	Memo       *string
	Category   *string
	Confidence float64 // 0.0 to 1.0
	ParserUsed string
}

// EmptyParseResult returns a result with nothing extracted.
func EmptyParseResult(parserUsed string) ParseResult {
	return ParseResult{ParserUsed: parserUsed}
}

// HasAmount reports whether an amount was extracted.
func (r ParseResult) HasAmount() bool {
	return r.Amount != nil
}
