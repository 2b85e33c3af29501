package textparser

import (
	"context"
	"sort"

	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/parsererror"
)

// PipelineID is reported as ParserUsed when no strategy could handle a text.
const PipelineID = "pipeline"

// Pipeline selects and runs parsing strategies.
//
// Strategies are ranked by CanHandle, highest first, ties keeping
// registration order. The best one parses the text; if it fails, the next is
// tried. Strategies scoring 0 are never run.
type Pipeline struct {
	strategies []Strategy
	logger     logging.Logger
}

// NewPipeline creates a pipeline over strategies in registration order.
func NewPipeline(logger logging.Logger, strategies ...Strategy) *Pipeline {
	p := &Pipeline{logger: logging.OrDefault(logger)}
	for _, s := range strategies {
		p.Register(s)
	}
	return p
}

// Register appends a strategy; nil is ignored.
func (p *Pipeline) Register(s Strategy) {
	if s != nil {
		p.strategies = append(p.strategies, s)
	}
}

// Strategies returns the registered strategies in registration order.
func (p *Pipeline) Strategies() []Strategy {
	out := make([]Strategy, len(p.strategies))
	copy(out, p.strategies)
	return out
}

type candidate struct {
	strategy Strategy
	score    float64
}

// Rank returns the strategies able to handle text, best first.
func (p *Pipeline) Rank(text string) []Strategy {
	candidates := p.rank(text)
	out := make([]Strategy, len(candidates))
	for i, c := range candidates {
		out[i] = c.strategy
	}
	return out
}

func (p *Pipeline) rank(text string) []candidate {
	candidates := make([]candidate, 0, len(p.strategies))
	for _, s := range p.strategies {
		score := s.CanHandle(text)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, candidate{strategy: s, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates
}

// Parse runs the best-ranked strategy on text. It returns an empty result
// attributed to "pipeline" when no strategy can handle the text, and a
// *parsererror.PipelineError only when every candidate failed.
func (p *Pipeline) Parse(ctx context.Context, text string) (models.ParseResult, error) {
	candidates := p.rank(text)
	if len(candidates) == 0 {
		p.logger.Debug("No parser can handle text",
			logging.Field{Key: logging.FieldCount, Value: len(p.strategies)})
		return models.EmptyParseResult(PipelineID), nil
	}

	var failures parsererror.PipelineError
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return models.ParseResult{}, err
		}

		id := c.strategy.Identifier()
		result, err := c.strategy.Parse(ctx, text)
		if err != nil {
			p.logger.WithError(err).Warn("Parser failed, trying next",
				logging.Field{Key: logging.FieldParser, Value: id})
			failures.Add(id, err)
			continue
		}

		if result.ParserUsed == "" {
			result.ParserUsed = id
		}
		p.logger.Info("Text parsed",
			logging.Field{Key: logging.FieldParser, Value: id},
			logging.Field{Key: logging.FieldConfidence, Value: result.Confidence})
		return result, nil
	}
	return models.ParseResult{}, &failures
}
