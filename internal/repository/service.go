// Package repository is the persistence and query facade over the entity
// store. Every operation runs as a task on the worker pool and reports
// failures through the repoerror taxonomy.
package repository

import (
	"context"
	"errors"
	"time"

	"fjacquet/kakeibo/internal/entitystore"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/repoerror"
	"fjacquet/kakeibo/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the subset of *entitystore.Store the service needs.
type Store interface {
	Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Update(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	Scan(ctx context.Context, q entitystore.Query, batchSize int, fn func([]models.Transaction) error) error
}

// Filter restricts FetchAll. Nil fields impose no constraint; the bounds are
// inclusive.
type Filter struct {
	Start        *time.Time
	End          *time.Time
	CategoryName *string
}

// Service implements the transaction repository.
type Service struct {
	store     Store
	pool      *worker.Pool
	logger    logging.Logger
	batchSize int
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets how many rows FetchAll and CalculateTotal read per query.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithClock overrides the clock used to refresh UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a repository service.
func New(store Store, pool *worker.Pool, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		pool:      pool,
		logger:    logging.OrDefault(logger),
		batchSize: entitystore.DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists tx as a new record. A reused ID produces a second,
// independent record.
func (s *Service) Save(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	id := tx.ID.String()
	if err := tx.Validate(); err != nil {
		return models.Transaction{}, repoerror.SaveFailed(id, err)
	}

	saved, err := worker.Do(ctx, s.pool, func(ctx context.Context) (models.Transaction, error) {
		return s.store.Insert(ctx, tx)
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to save transaction",
			logging.Field{Key: logging.FieldTransactionID, Value: id})
		return models.Transaction{}, repoerror.SaveFailed(id, err)
	}

	s.logger.Debug("Transaction saved",
		logging.Field{Key: logging.FieldTransactionID, Value: id},
		logging.Field{Key: logging.FieldCategory, Value: saved.CategoryOrEmpty()})
	return saved, nil
}

// Update overwrites the mutable fields of the first record with tx.ID and
// refreshes UpdatedAt. Returns repoerror.ErrNotFound when no record exists.
func (s *Service) Update(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	id := tx.ID.String()
	tx = tx.Touch(s.now())

	updated, err := worker.Do(ctx, s.pool, func(ctx context.Context) (models.Transaction, error) {
		return s.store.Update(ctx, tx)
	})
	if err != nil {
		err = storeError(err)
		if !errors.Is(err, repoerror.ErrNotFound) {
			s.logger.WithError(err).Warn("Failed to update transaction",
				logging.Field{Key: logging.FieldTransactionID, Value: id})
		}
		return models.Transaction{}, repoerror.UpdateFailed(id, err)
	}

	s.logger.Debug("Transaction updated",
		logging.Field{Key: logging.FieldTransactionID, Value: id},
		logging.Field{Key: logging.FieldVersion, Value: updated.Version})
	return updated, nil
}

// Delete removes the first record with id. Returns repoerror.ErrNotFound when
// no record exists.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := worker.Do(ctx, s.pool, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Delete(ctx, id)
	})
	if err != nil {
		return repoerror.DeleteFailed(id.String(), storeError(err))
	}
	s.logger.Debug("Transaction deleted",
		logging.Field{Key: logging.FieldTransactionID, Value: id.String()})
	return nil
}

// Fetch returns the first record with id, or nil when there is none.
func (s *Service) Fetch(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, err := worker.Do(ctx, s.pool, func(ctx context.Context) (models.Transaction, error) {
		return s.store.Get(ctx, id)
	})
	if errors.Is(err, entitystore.ErrNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, repoerror.FetchFailed(id.String(), err)
	}
	return &tx, nil
}

// FetchAll returns the records matching filter, newest date first. Records
// sharing a date are ordered by insertion, latest first, so repeated calls
// return the same order.
func (s *Service) FetchAll(ctx context.Context, filter Filter) ([]models.Transaction, error) {
	start := s.now()
	txs, err := worker.Do(ctx, s.pool, func(ctx context.Context) ([]models.Transaction, error) {
		out := []models.Transaction{}
		err := s.store.Scan(ctx, filter.query(), s.batchSize, func(batch []models.Transaction) error {
			out = append(out, batch...)
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, repoerror.FetchFailed("", err)
	}

	s.logger.Debug("Fetched transactions",
		logging.Field{Key: logging.FieldCount, Value: len(txs)},
		logging.Field{Key: logging.FieldDuration, Value: s.now().Sub(start).String()})
	return txs, nil
}

// CalculateTotal sums the amounts of records dated within [start, end],
// restricted to categoryName when it is non-nil. Records without an amount
// contribute nothing; an empty set totals zero.
func (s *Service) CalculateTotal(ctx context.Context, start, end time.Time, categoryName *string) (decimal.Decimal, error) {
	filter := Filter{Start: &start, End: &end, CategoryName: categoryName}
	total, err := worker.Do(ctx, s.pool, func(ctx context.Context) (decimal.Decimal, error) {
		sum := decimal.Zero
		err := s.store.Scan(ctx, filter.query(), s.batchSize, func(batch []models.Transaction) error {
			for _, tx := range batch {
				if tx.Amount != nil {
					sum = sum.Add(*tx.Amount)
				}
			}
			return nil
		})
		return sum, err
	})
	if err != nil {
		return decimal.Zero, repoerror.FetchFailed("", err)
	}
	return total, nil
}

func (f Filter) query() entitystore.Query {
	return entitystore.Query{Start: f.Start, End: f.End, CategoryName: f.CategoryName}
}

func storeError(err error) error {
	if errors.Is(err, entitystore.ErrNoRecord) {
		return repoerror.ErrNotFound
	}
	return err
}
