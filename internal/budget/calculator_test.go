package budget

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTotals struct {
	mock.Mock
}

func (m *MockTotals) CalculateTotal(ctx context.Context, start, end time.Time, categoryName *string) (decimal.Decimal, error) {
	args := m.Called(ctx, start, end, categoryName)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func strPtr(s string) *string { return &s }

func monthBudget(amount int64, category *string) models.Budget {
	return models.Budget{
		ID:           uuid.New(),
		CategoryName: category,
		Amount:       decimal.NewFromInt(amount),
		Period:       models.PeriodMonthly,
		StartDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		spent    int64
		rate     float64
		remain   int64
		isOver   bool
		category *string
	}{
		{name: "half spent", amount: 1000, spent: 500, rate: 0.5, remain: 500, isOver: false, category: strPtr("食費")},
		{name: "over budget", amount: 1000, spent: 1200, rate: 1.2, remain: -200, isOver: true},
		{name: "zero amount", amount: 0, spent: 300, rate: 0, remain: -300, isOver: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := monthBudget(tt.amount, tt.category)
			totals := new(MockTotals)
			totals.On("CalculateTotal", mock.Anything, b.StartDate, b.EndDate, tt.category).
				Return(decimal.NewFromInt(tt.spent), nil)

			progress, err := NewCalculator(totals, logging.NewMockLogger(), 2).Execute(context.Background(), b)
			require.NoError(t, err)

			assert.Equal(t, b, progress.Budget)
			assert.True(t, decimal.NewFromInt(tt.spent).Equal(progress.CurrentSpending))
			assert.InDelta(t, tt.rate, progress.ProgressRate(), 1e-9)
			assert.True(t, decimal.NewFromInt(tt.remain).Equal(progress.Remaining()))
			assert.Equal(t, tt.isOver, progress.IsOverBudget())
			totals.AssertExpectations(t)
		})
	}
}

func TestExecute_InvalidBudget(t *testing.T) {
	b := monthBudget(1000, nil)
	b.StartDate, b.EndDate = b.EndDate, b.StartDate

	totals := new(MockTotals)
	_, err := NewCalculator(totals, nil, 1).Execute(context.Background(), b)
	assert.Error(t, err)
	totals.AssertNotCalled(t, "CalculateTotal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_RepositoryFailure(t *testing.T) {
	cause := errors.New("database is locked")
	b := monthBudget(1000, nil)

	totals := new(MockTotals)
	totals.On("CalculateTotal", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(decimal.Zero, cause)

	logger := logging.NewMockLogger()
	_, err := NewCalculator(totals, logger, 1).Execute(context.Background(), b)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, logger.HasEntry("WARN", "Failed to calculate budget spending"))
}

type slowTotals struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
}

func (s *slowTotals) CalculateTotal(ctx context.Context, start, end time.Time, categoryName *string) (decimal.Decimal, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)

	s.mu.Lock()
	if n > s.peak {
		s.peak = n
	}
	s.mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	// Spending equals the day of month of the end date so results are
	// distinguishable per budget.
	return decimal.NewFromInt(int64(end.Day())), nil
}

func TestExecuteAll_PreservesOrderAndBoundsConcurrency(t *testing.T) {
	var budgets []models.Budget
	for day := 1; day <= 12; day++ {
		b := monthBudget(100, nil)
		b.EndDate = time.Date(2024, 3, day, 23, 59, 59, 0, time.UTC)
		budgets = append(budgets, b)
	}

	totals := &slowTotals{}
	results, err := NewCalculator(totals, nil, 3).ExecuteAll(context.Background(), budgets)
	require.NoError(t, err)
	require.Len(t, results, len(budgets))

	for i, progress := range results {
		assert.Equal(t, budgets[i].ID, progress.Budget.ID)
		assert.True(t, decimal.NewFromInt(int64(i+1)).Equal(progress.CurrentSpending))
	}
	assert.LessOrEqual(t, totals.peak, int32(3))
}

func TestExecuteAll_FailureReturnsError(t *testing.T) {
	good := monthBudget(100, nil)
	bad := monthBudget(100, strPtr("交通費"))

	totals := new(MockTotals)
	totals.On("CalculateTotal", mock.Anything, mock.Anything, mock.Anything, (*string)(nil)).
		Return(decimal.NewFromInt(10), nil).Maybe()
	totals.On("CalculateTotal", mock.Anything, mock.Anything, mock.Anything, bad.CategoryName).
		Return(decimal.Zero, errors.New("disk I/O error"))

	results, err := NewCalculator(totals, nil, 2).ExecuteAll(context.Background(), []models.Budget{good, bad})
	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestExecuteAll_Empty(t *testing.T) {
	results, err := NewCalculator(new(MockTotals), nil, 0).ExecuteAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
