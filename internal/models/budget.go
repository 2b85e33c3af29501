package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetPeriod is the recurrence a budget was declared with.
type BudgetPeriod string

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodCustom  BudgetPeriod = "custom"
)

// Valid reports whether p is one of the known periods.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodCustom:
		return true
	}
	return false
}

// Budget is a spending ceiling for one category, or for all of them when
// CategoryName is nil, over [StartDate, EndDate].
type Budget struct {
	ID           uuid.UUID
	CategoryName *string
	Amount       decimal.Decimal
	Period       BudgetPeriod
	StartDate    time.Time
	EndDate      time.Time
}

// Validate checks StartDate <= EndDate and the period value.
func (b Budget) Validate() error {
	if !b.Period.Valid() {
		return fmt.Errorf("budget %s: unknown period %q", b.ID, b.Period)
	}
	if b.StartDate.After(b.EndDate) {
		return fmt.Errorf("budget %s: start date %s is after end date %s",
			b.ID, b.StartDate.Format(time.RFC3339), b.EndDate.Format(time.RFC3339))
	}
	return nil
}

// BudgetProgress is derived from a Budget and the spending in its range.
// It is never persisted.
type BudgetProgress struct {
	Budget          Budget
	CurrentSpending decimal.Decimal
}

// ProgressRate is CurrentSpending / Budget.Amount, or 0 when the budget
// amount is not positive.
func (p BudgetProgress) ProgressRate() float64 {
	if !p.Budget.Amount.IsPositive() {
		return 0
	}
	rate, _ := p.CurrentSpending.DivRound(p.Budget.Amount, 16).Float64()
	return rate
}

// Remaining is Budget.Amount - CurrentSpending and may be negative.
func (p BudgetProgress) Remaining() decimal.Decimal {
	return p.Budget.Amount.Sub(p.CurrentSpending)
}

// IsOverBudget reports CurrentSpending > Budget.Amount.
func (p BudgetProgress) IsOverBudget() bool {
	return p.CurrentSpending.GreaterThan(p.Budget.Amount)
}
