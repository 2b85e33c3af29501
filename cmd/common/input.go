package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fjacquet/kakeibo/internal/currencyutils"
	"fjacquet/kakeibo/internal/dateutils"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"
)

// ReadText returns the arguments joined by spaces, or all of in when there
// are none. A terminal on in is not read from.
func ReadText(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := in.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "", fmt.Errorf("no text given: pass it as arguments or pipe it on stdin")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return string(data), nil
}

// ParseID parses a transaction id argument.
func ParseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid transaction id %q: %w", arg, err)
	}
	return id, nil
}

// ParseDateFlag parses an optional date flag value. Empty means unset and
// "today" is the current date in loc.
func ParseDateFlag(value string, now time.Time, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "":
		return nil, nil
	case "today":
		t := dateutils.StartOfDay(now.In(loc))
		return &t, nil
	}
	t, _, err := dateutils.ParseDate(value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseMonth returns a time inside the month named by value (YYYY-MM or
// YYYY/MM), or now when value is empty.
func ParseMonth(value string, now time.Time, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now.In(loc), nil
	}
	for _, layout := range []string{"2006-01", "2006/01", "200601"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid month %q (expected YYYY-MM)", value)
}

// ParseAmountFlag parses an optional amount flag. Empty means no amount.
func ParseAmountFlag(value string) (*decimal.Decimal, error) {
	return currencyutils.ParseOptionalAmount(value)
}

// OptionalString returns nil for an empty flag value.
func OptionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
