// Package budget computes spending progress against budgets.
package budget

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// TotalCalculator sums spending over a date range, optionally for one
// category. repository.Service satisfies it.
type TotalCalculator interface {
	CalculateTotal(ctx context.Context, start, end time.Time, categoryName *string) (decimal.Decimal, error)
}

// Calculator turns budgets into BudgetProgress values.
type Calculator struct {
	totals      TotalCalculator
	logger      logging.Logger
	concurrency int
}

// NewCalculator creates a calculator. concurrency bounds ExecuteAll and
// defaults to the number of CPUs when < 1.
func NewCalculator(totals TotalCalculator, logger logging.Logger, concurrency int) *Calculator {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	return &Calculator{
		totals:      totals,
		logger:      logging.OrDefault(logger),
		concurrency: concurrency,
	}
}

// Execute computes the progress of one budget.
func (c *Calculator) Execute(ctx context.Context, b models.Budget) (models.BudgetProgress, error) {
	if err := b.Validate(); err != nil {
		return models.BudgetProgress{}, err
	}

	spending, err := c.totals.CalculateTotal(ctx, b.StartDate, b.EndDate, b.CategoryName)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to calculate budget spending",
			logging.Field{Key: logging.FieldBudgetID, Value: b.ID.String()})
		return models.BudgetProgress{}, fmt.Errorf("budget %s: %w", b.ID, err)
	}

	progress := models.BudgetProgress{Budget: b, CurrentSpending: spending}
	c.logger.Debug("Budget progress calculated",
		logging.Field{Key: logging.FieldBudgetID, Value: b.ID.String()},
		logging.Field{Key: "rate", Value: progress.ProgressRate()})
	return progress, nil
}

// ExecuteAll computes every budget concurrently and returns the results in
// input order. The first failure cancels the rest.
func (c *Calculator) ExecuteAll(ctx context.Context, budgets []models.Budget) ([]models.BudgetProgress, error) {
	results := make([]models.BudgetProgress, len(budgets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, b := range budgets {
		g.Go(func() error {
			progress, err := c.Execute(gctx, b)
			if err != nil {
				return err
			}
			results[i] = progress
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
