// Package textparser turns free-form shared text into structured transaction
// fields. Strategies score how well they can handle a text and the Pipeline
// runs the best-scoring one.
package textparser

import (
	"context"

	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"
)

// Strategy is one way of extracting transaction fields from text.
//
// Implementations must keep CanHandle fast and free of side effects: the
// pipeline calls it for every registered strategy before choosing one.
type Strategy interface {
	// Identifier names the strategy in ParseResult.ParserUsed and in logs.
	Identifier() string

	// CanHandle returns a confidence in [0, 1] that Parse will succeed on text.
	// 0 means the strategy must not be used.
	CanHandle(text string) float64

	// Parse extracts what it can from text.
	//
	// Parameters:
	//   - ctx: Context for cancellation of slow strategies
	//   - text: The shared text, unmodified
	//
	// Returns:
	//   - models.ParseResult: The extracted fields and a confidence score
	//   - error: Non-nil only when the strategy could not run at all
	Parse(ctx context.Context, text string) (models.ParseResult, error)
}

// BaseParser carries the logger shared by strategy implementations.
//
// Strategies embed it:
//
//	type MyParser struct {
//		BaseParser
//	}
type BaseParser struct {
	logger logging.Logger
}

// NewBaseParser creates a BaseParser. A nil logger uses the package default.
func NewBaseParser(logger logging.Logger) BaseParser {
	return BaseParser{logger: logging.OrDefault(logger)}
}

// SetLogger replaces the logger; nil is ignored.
func (b *BaseParser) SetLogger(logger logging.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// GetLogger returns the current logger instance.
func (b *BaseParser) GetLogger() logging.Logger {
	return b.logger
}
