// Package parsererror defines the errors reported by the text parsing
// strategies and the pipeline that runs them.
package parsererror

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned by a strategy that lacks its backend, such as
// an AI parser without an API key.
var ErrNotConfigured = errors.New("parser is not configured")

// ParseError represents a field value a parser could not interpret
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ProviderError represents a failure of the service behind a strategy
type ProviderError struct {
	Parser string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider request failed: %v", e.Parser, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PipelineError collects the failure of every candidate strategy. It is only
// returned when no strategy produced a result.
type PipelineError struct {
	Failures map[string]error
	Order    []string
}

// Add records the failure of parser.
func (e *PipelineError) Add(parser string, err error) {
	if e.Failures == nil {
		e.Failures = make(map[string]error)
	}
	if _, seen := e.Failures[parser]; !seen {
		e.Order = append(e.Order, parser)
	}
	e.Failures[parser] = err
}

// Len returns the number of recorded failures.
func (e *PipelineError) Len() int {
	return len(e.Order)
}

func (e *PipelineError) Error() string {
	parts := make([]string, 0, len(e.Order))
	for _, p := range e.Order {
		parts = append(parts, fmt.Sprintf("%s: %v", p, e.Failures[p]))
	}
	return fmt.Sprintf("all %d parsers failed: %s", len(e.Order), strings.Join(parts, "; "))
}

// Unwrap exposes every recorded failure to errors.Is and errors.As.
func (e *PipelineError) Unwrap() []error {
	errs := make([]error, 0, len(e.Order))
	for _, p := range e.Order {
		errs = append(errs, e.Failures[p])
	}
	return errs
}
