package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionBuilder provides a fluent API for constructing transactions.
// The first error encountered is kept and returned by Build.
type TransactionBuilder struct {
	tx  Transaction
	now func() time.Time
	err error
}

// NewTransactionBuilder creates a builder with a fresh ID, the current time as
// date, app as source and no amount.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		tx: Transaction{
			ID:     uuid.New(),
			Source: SourceApp,
		},
		now: time.Now,
	}
}

// WithClock overrides the clock used for the default date and timestamps.
func (b *TransactionBuilder) WithClock(now func() time.Time) *TransactionBuilder {
	if now != nil {
		b.now = now
	}
	return b
}

// WithID sets the transaction ID
func (b *TransactionBuilder) WithID(id uuid.UUID) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if id == uuid.Nil {
		b.err = errors.New("id cannot be nil")
		return b
	}
	b.tx.ID = id
	return b
}

// WithAmount sets the amount. A nil pointer leaves the amount unset.
func (b *TransactionBuilder) WithAmount(amount *decimal.Decimal) *TransactionBuilder {
	if b.err != nil || amount == nil {
		return b
	}
	b.tx.Amount = DecimalPtr(*amount)
	return b
}

// WithDate sets when the expense occurred
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if date.IsZero() {
		b.err = errors.New("date cannot be zero")
		return b
	}
	b.tx.Date = date
	return b
}

// WithMemo sets the memo; empty clears it
func (b *TransactionBuilder) WithMemo(memo string) *TransactionBuilder {
	b.tx.Memo = StringPtr(memo)
	return b
}

// WithCategory sets the category name; empty means uncategorized
func (b *TransactionBuilder) WithCategory(name string) *TransactionBuilder {
	b.tx.CategoryName = StringPtr(name)
	return b
}

// WithSourceText keeps the original shared text
func (b *TransactionBuilder) WithSourceText(text string) *TransactionBuilder {
	b.tx.SourceText = StringPtr(text)
	return b
}

// WithSource sets the recording context
func (b *TransactionBuilder) WithSource(source TransactionSource) *TransactionBuilder {
	b.tx.Source = source
	return b
}

// AsPrivate flags the transaction as private
func (b *TransactionBuilder) AsPrivate(private bool) *TransactionBuilder {
	b.tx.IsPrivate = private
	return b
}

// Build returns the transaction with CreatedAt and UpdatedAt set to now.
func (b *TransactionBuilder) Build() (Transaction, error) {
	if b.err != nil {
		return Transaction{}, b.err
	}
	now := b.now()
	tx := b.tx
	if tx.Date.IsZero() {
		tx.Date = now
	}
	tx.CreatedAt = now
	tx.UpdatedAt = now
	return tx, nil
}
