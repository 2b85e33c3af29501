package budget

import (
	"fmt"
	"time"

	"fjacquet/kakeibo/internal/currencyutils"
	"fjacquet/kakeibo/internal/dateutils"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/store"

	"github.com/google/uuid"
)

// budgetNamespace seeds the deterministic IDs of budgets declared without one.
var budgetNamespace = uuid.MustParse("3b0f7d2e-92a4-4d43-8f0e-5a1c7e9d2b60")

// Resolve returns the range of the weekly or monthly period containing ref.
// Custom budgets carry their own dates and cannot be resolved.
func Resolve(period models.BudgetPeriod, ref time.Time) (time.Time, time.Time, error) {
	switch period {
	case models.PeriodWeekly:
		return dateutils.StartOfWeek(ref), dateutils.EndOfWeek(ref), nil
	case models.PeriodMonthly:
		return dateutils.StartOfMonth(ref), dateutils.EndOfMonth(ref), nil
	case models.PeriodCustom:
		return time.Time{}, time.Time{}, fmt.Errorf("custom budgets need explicit start and end dates")
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown budget period %q", period)
	}
}

// FromEntry builds a Budget from a budgets.yaml entry. Weekly and monthly
// entries without dates are resolved around ref; dates are read in loc.
func FromEntry(e store.BudgetEntry, ref time.Time, loc *time.Location) (models.Budget, error) {
	if loc == nil {
		loc = time.Local
	}

	amount, err := currencyutils.ParseAmount(e.Amount)
	if err != nil {
		return models.Budget{}, fmt.Errorf("budget %q: %w", label(e), err)
	}

	period := models.BudgetPeriod(e.Period)
	if period == "" {
		period = models.PeriodMonthly
	}

	b := models.Budget{
		Amount: amount,
		Period: period,
	}
	if e.Category != "" {
		category := e.Category
		b.CategoryName = &category
	}

	if e.ID != "" {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return models.Budget{}, fmt.Errorf("budget %q: invalid id: %w", label(e), err)
		}
		b.ID = id
	} else {
		b.ID = uuid.NewSHA1(budgetNamespace, []byte(string(period)+"/"+e.Category))
	}

	if e.Start == "" && e.End == "" {
		b.StartDate, b.EndDate, err = Resolve(period, ref.In(loc))
		if err != nil {
			return models.Budget{}, fmt.Errorf("budget %q: %w", label(e), err)
		}
	} else {
		if e.Start == "" || e.End == "" {
			return models.Budget{}, fmt.Errorf("budget %q: start and end must be given together", label(e))
		}
		start, _, err := dateutils.ParseDate(e.Start, loc)
		if err != nil {
			return models.Budget{}, fmt.Errorf("budget %q: %w", label(e), err)
		}
		end, _, err := dateutils.ParseDate(e.End, loc)
		if err != nil {
			return models.Budget{}, fmt.Errorf("budget %q: %w", label(e), err)
		}
		b.StartDate = dateutils.StartOfDay(start)
		b.EndDate = dateutils.EndOfDay(end)
	}

	if err := b.Validate(); err != nil {
		return models.Budget{}, err
	}
	return b, nil
}

// FromEntries converts every entry, failing on the first invalid one.
func FromEntries(entries []store.BudgetEntry, ref time.Time, loc *time.Location) ([]models.Budget, error) {
	budgets := make([]models.Budget, 0, len(entries))
	for _, e := range entries {
		b, err := FromEntry(e, ref, loc)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, nil
}

func label(e store.BudgetEntry) string {
	if e.Category == "" {
		return "全体"
	}
	return e.Category
}
