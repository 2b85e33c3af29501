// Package models provides the data structures shared by the store, the
// repository, the parsing pipeline and the budget calculator.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionSource tells which process context recorded a transaction.
type TransactionSource string

const (
	// SourceApp marks transactions entered in the primary application.
	SourceApp TransactionSource = "app"
	// SourceShareExtension marks transactions created from shared text.
	SourceShareExtension TransactionSource = "share_extension"
)

// ParseTransactionSource converts a stored value back to a TransactionSource.
// Unknown values fall back to SourceApp.
func ParseTransactionSource(s string) TransactionSource {
	switch TransactionSource(s) {
	case SourceShareExtension:
		return SourceShareExtension
	default:
		return SourceApp
	}
}

// Transaction is a single recorded expense.
//
// ID and CreatedAt are fixed once the value is built. CategoryName is a weak
// reference to a Category by name: nothing cascades when a category changes.
type Transaction struct {
	ID           uuid.UUID
	Amount       *decimal.Decimal // nil until the user enters an amount
	Date         time.Time
	Memo         *string
	CategoryName *string
	SourceText   *string // original shared text, kept only for extension entries
	Source       TransactionSource
	IsPrivate    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Version is the store revision this value was read at; 0 means it was
	// never persisted or the base revision is unknown.
	Version int64
}

// Validate checks the invariants a persisted transaction must hold.
func (t Transaction) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("transaction id is required")
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("transaction %s: created_at is required", t.ID)
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		return fmt.Errorf("transaction %s: updated_at %s is before created_at %s",
			t.ID, t.UpdatedAt.Format(time.RFC3339Nano), t.CreatedAt.Format(time.RFC3339Nano))
	}
	return nil
}

// Touch returns a copy with UpdatedAt set to now, never earlier than CreatedAt.
func (t Transaction) Touch(now time.Time) Transaction {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
	return t
}

// Equal compares every field, using decimal equality for the amount and
// instant equality for times.
func (t Transaction) Equal(o Transaction) bool {
	return t.ID == o.ID &&
		decimalPtrEqual(t.Amount, o.Amount) &&
		t.Date.Equal(o.Date) &&
		stringPtrEqual(t.Memo, o.Memo) &&
		stringPtrEqual(t.CategoryName, o.CategoryName) &&
		stringPtrEqual(t.SourceText, o.SourceText) &&
		t.Source == o.Source &&
		t.IsPrivate == o.IsPrivate &&
		t.CreatedAt.Equal(o.CreatedAt) &&
		t.UpdatedAt.Equal(o.UpdatedAt)
}

// CategoryOrEmpty returns the category name or "".
func (t Transaction) CategoryOrEmpty() string {
	if t.CategoryName == nil {
		return ""
	}
	return *t.CategoryName
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DecimalPtr returns a pointer to a copy of d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
