package textparser

import (
	"context"
	"regexp"
	"strings"

	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/shopspring/decimal"
)

// RegexParserID identifies the pattern-based strategy.
const RegexParserID = "regex_parser"

const (
	regexAmountConfidence   = 0.5
	regexMatchCapability    = 0.6
	regexFallbackCapability = 0.3
)

// amountPatterns are tried in order; the first that yields an amount wins.
// The bare thousands-grouped form is matched by groupedNumber.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[¥￥][\s\p{Zs}]*([0-9,]+(?:\.[0-9]+)?)`),   // ¥1,234 / ￥1234
	regexp.MustCompile(`([0-9,]+(?:\.[0-9]+)?)[\s\p{Zs}]*円`),      // 1,234円
	regexp.MustCompile(`金額[：:][\s\p{Zs}]*([0-9,]+(?:\.[0-9]+)?)`), // 金額：1,234
}

// RegexParser extracts a yen amount with a fixed set of patterns and uses the
// whole text as memo.
type RegexParser struct {
	BaseParser
}

// NewRegexParser creates the pattern-based strategy.
func NewRegexParser(logger logging.Logger) *RegexParser {
	return &RegexParser{BaseParser: NewBaseParser(logger)}
}

// Identifier returns "regex_parser".
func (p *RegexParser) Identifier() string {
	return RegexParserID
}

// CanHandle returns 0.6 when an amount can be extracted, 0.3 for any other
// non-empty text and 0 for empty text.
func (p *RegexParser) CanHandle(text string) float64 {
	if ExtractAmount(text) != nil {
		return regexMatchCapability
	}
	if text == "" {
		return 0
	}
	return regexFallbackCapability
}

// Parse never fails. Memo is always the trimmed input; confidence is 0.5
// when an amount was found.
func (p *RegexParser) Parse(_ context.Context, text string) (models.ParseResult, error) {
	result := models.EmptyParseResult(RegexParserID)

	if amount := ExtractAmount(text); amount != nil {
		result.Amount = amount
		result.Confidence += regexAmountConfidence
	}

	memo := strings.TrimSpace(text)
	result.Memo = &memo

	p.logger.Debug("Regex parser finished",
		logging.Field{Key: logging.FieldParser, Value: RegexParserID},
		logging.Field{Key: logging.FieldConfidence, Value: result.Confidence})
	return result, nil
}

// ExtractAmount returns the first amount found in text, or nil.
//
// Recognized forms, in priority order: a ¥ or ￥ prefix, a 円 suffix, a
// 金額： label, then a bare number with comma thousands separators that is
// not followed by another digit. Commas are stripped before conversion; a
// match that does not convert to a number yields no amount for that form.
func ExtractAmount(text string) *decimal.Decimal {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if amount := toDecimal(m[1]); amount != nil {
			return amount
		}
	}
	if grouped, ok := groupedNumber(text); ok {
		return toDecimal(grouped)
	}
	return nil
}

func toDecimal(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil
	}
	return &d
}

// groupedNumber finds the leftmost run of 1-3 digits followed by one or more
// ",ddd" groups that is not immediately followed by a digit. Shorter group
// counts are tried when the longest one is followed by a digit.
func groupedNumber(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if !isDigit(s[start]) {
			continue
		}
		for lead := 3; lead >= 1; lead-- {
			if !allDigits(s, start, start+lead) {
				continue
			}
			var ends []int
			for pos := start + lead; pos+4 <= len(s) && s[pos] == ',' && allDigits(s, pos+1, pos+4); pos += 4 {
				ends = append(ends, pos+4)
			}
			for i := len(ends) - 1; i >= 0; i-- {
				if end := ends[i]; end == len(s) || !isDigit(s[end]) {
					return s[start:end], true
				}
			}
		}
	}
	return "", false
}

func allDigits(s string, from, to int) bool {
	if to > len(s) {
		return false
	}
	for i := from; i < to; i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
