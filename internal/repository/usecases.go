package repository

import (
	"context"
	"time"

	"fjacquet/kakeibo/internal/dateutils"
	"fjacquet/kakeibo/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the contract the use cases and the CLI consume.
type Repository interface {
	Save(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Update(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Fetch(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FetchAll(ctx context.Context, filter Filter) ([]models.Transaction, error)
	CalculateTotal(ctx context.Context, start, end time.Time, categoryName *string) (decimal.Decimal, error)
}

var _ Repository = (*Service)(nil)

// AddInput is what a user enters for a new transaction.
type AddInput struct {
	Amount       *decimal.Decimal
	Date         time.Time // now when zero
	Memo         string
	CategoryName string
	SourceText   string
	Source       models.TransactionSource // app when empty
	IsPrivate    bool
}

// UseCases groups the application-level operations on transactions.
type UseCases struct {
	repo Repository
	now  func() time.Time
}

// NewUseCases creates the use cases over repo.
func NewUseCases(repo Repository) *UseCases {
	return &UseCases{repo: repo, now: time.Now}
}

// AddTransaction builds a fresh transaction from in and saves it.
func (u *UseCases) AddTransaction(ctx context.Context, in AddInput) (models.Transaction, error) {
	b := models.NewTransactionBuilder().
		WithClock(u.now).
		WithAmount(in.Amount).
		WithMemo(in.Memo).
		WithCategory(in.CategoryName).
		WithSourceText(in.SourceText).
		AsPrivate(in.IsPrivate)
	if !in.Date.IsZero() {
		b = b.WithDate(in.Date)
	}
	if in.Source != "" {
		b = b.WithSource(in.Source)
	}
	tx, err := b.Build()
	if err != nil {
		return models.Transaction{}, err
	}
	return u.repo.Save(ctx, tx)
}

// UpdateTransaction stamps tx as modified now and updates it.
func (u *UseCases) UpdateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	return u.repo.Update(ctx, tx.Touch(u.now()))
}

// DeleteTransaction removes the transaction with id.
func (u *UseCases) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return u.repo.Delete(ctx, id)
}

// GetTransactions lists transactions matching filter.
func (u *UseCases) GetTransactions(ctx context.Context, filter Filter) ([]models.Transaction, error) {
	return u.repo.FetchAll(ctx, filter)
}

// GetTransaction returns one transaction, or nil when it does not exist.
func (u *UseCases) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return u.repo.Fetch(ctx, id)
}

// MonthlyTotal sums spending in the month containing ref.
func (u *UseCases) MonthlyTotal(ctx context.Context, ref time.Time, categoryName *string) (decimal.Decimal, error) {
	return u.repo.CalculateTotal(ctx, dateutils.StartOfMonth(ref), dateutils.EndOfMonth(ref), categoryName)
}
