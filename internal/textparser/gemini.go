package textparser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fjacquet/kakeibo/internal/currencyutils"
	"fjacquet/kakeibo/internal/dateutils"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/parsererror"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// GeminiParserID identifies the AI-backed strategy.
const GeminiParserID = "gemini_parser"

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

const (
	geminiCapability       = 0.5
	geminiAmountConfidence = 0.5
	geminiDateConfidence   = 0.2
	geminiCategoryWeight   = 0.2
)

// TextGenerator sends a prompt to a language model and returns its reply.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator is a TextGenerator backed by the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGenerator creates a Gemini client for model authenticated with apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set: %w", parsererror.ErrNotConfigured)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.SetTemperature(0)
	return &GeminiGenerator{client: client, model: m}, nil
}

// Generate returns the text of the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini API")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// GeminiParser asks a language model for the amount, date, category and memo
// of a shared text. Categories are restricted to the preset catalog.
type GeminiParser struct {
	BaseParser
	generator  TextGenerator
	categories []string
	timeout    time.Duration
	location   *time.Location
	limiter    *rate.Limiter // nil means unlimited
}

// GeminiOption configures a GeminiParser.
type GeminiOption func(*GeminiParser)

// WithTimeout bounds each model request.
func WithTimeout(d time.Duration) GeminiOption {
	return func(p *GeminiParser) {
		p.timeout = d
	}
}

// WithRateLimit spaces model requests to at most perMinute a minute.
// Zero or less leaves requests unlimited.
func WithRateLimit(perMinute int) GeminiOption {
	return func(p *GeminiParser) {
		if perMinute > 0 {
			p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithLocation sets the zone dates in replies are interpreted in.
func WithLocation(loc *time.Location) GeminiOption {
	return func(p *GeminiParser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// NewGeminiParser creates the strategy. A nil generator leaves it registered
// but unable to handle anything.
func NewGeminiParser(generator TextGenerator, logger logging.Logger, opts ...GeminiOption) *GeminiParser {
	p := &GeminiParser{
		BaseParser: NewBaseParser(logger),
		generator:  generator,
		categories: models.PresetCategoryNames(),
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Identifier returns "gemini_parser".
func (p *GeminiParser) Identifier() string {
	return GeminiParserID
}

// CanHandle returns 0.5 for non-blank text when a generator is configured.
func (p *GeminiParser) CanHandle(text string) float64 {
	if p.generator == nil || strings.TrimSpace(text) == "" {
		return 0
	}
	return geminiCapability
}

// Parse sends text to the model and reads back the labelled reply.
func (p *GeminiParser) Parse(ctx context.Context, text string) (models.ParseResult, error) {
	if p.generator == nil {
		return models.ParseResult{}, parsererror.ErrNotConfigured
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return models.ParseResult{}, &parsererror.ProviderError{Parser: GeminiParserID, Err: err}
		}
	}

	reply, err := p.generator.Generate(ctx, p.prompt(text))
	if err != nil {
		return models.ParseResult{}, &parsererror.ProviderError{Parser: GeminiParserID, Err: err}
	}

	result := p.readReply(reply, text)
	p.logger.Debug("Gemini parser finished",
		logging.Field{Key: logging.FieldParser, Value: GeminiParserID},
		logging.Field{Key: logging.FieldConfidence, Value: result.Confidence})
	return result, nil
}

func (p *GeminiParser) prompt(text string) string {
	return fmt.Sprintf(`Extract the expense described in the following text shared from a payment app, receipt or message:
---
%s
---

Use exactly one of these categories, or "none" if none fits:
%s

Respond in this format, writing "none" for anything you cannot find:
Amount: [amount in yen, digits only]
Date: [YYYY-MM-DD]
Category: [category]
Memo: [short description]`,
		text, strings.Join(p.categories, ", "))
}

// readReply turns the labelled lines of a reply into a ParseResult. Values
// that do not parse are dropped rather than failing the whole reply.
func (p *GeminiParser) readReply(reply, text string) models.ParseResult {
	result := models.EmptyParseResult(GeminiParserID)

	for _, line := range strings.Split(reply, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || strings.EqualFold(value, "none") {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "amount":
			amount, err := currencyutils.ParseAmount(value)
			if err != nil {
				p.dropped("amount", value, err)
				continue
			}
			result.Amount = &amount
		case "date":
			date, _, err := dateutils.ParseDate(value, p.location)
			if err != nil {
				p.dropped("date", value, err)
				continue
			}
			result.Date = &date
		case "category":
			if preset, found := models.FindPreset(value); found {
				name := preset.Name
				result.Category = &name
			} else {
				p.dropped("category", value, errors.New("not a preset category"))
			}
		case "memo":
			memo := value
			result.Memo = &memo
		}
	}

	if result.Memo == nil {
		memo := strings.TrimSpace(text)
		result.Memo = &memo
	}
	if result.Amount != nil {
		result.Confidence += geminiAmountConfidence
	}
	if result.Date != nil {
		result.Confidence += geminiDateConfidence
	}
	if result.Category != nil {
		result.Confidence += geminiCategoryWeight
	}
	return result
}

func (p *GeminiParser) dropped(field, value string, err error) {
	p.logger.WithError(&parsererror.ParseError{
		Parser: GeminiParserID,
		Field:  field,
		Value:  value,
		Err:    err,
	}).Debug("Ignoring unparseable value in model reply")
}
