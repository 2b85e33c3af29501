package entitystore

import (
	"testing"
	"time"

	"fjacquet/kakeibo/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMergeFields(t *testing.T) {
	base := models.Transaction{
		Amount:       models.DecimalPtr(decimal.NewFromInt(100)),
		Date:         day(1),
		Memo:         models.StringPtr("base"),
		CategoryName: models.StringPtr("食費"),
		UpdatedAt:    day(1),
	}

	stored := base
	stored.Memo = models.StringPtr("stored")
	stored.UpdatedAt = day(2)

	incoming := base
	incoming.Amount = models.DecimalPtr(decimal.NewFromInt(250))
	incoming.CategoryName = nil
	incoming.UpdatedAt = day(3)

	got := mergeFields(base, stored, incoming)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "stored", *got.Memo)
	assert.Nil(t, got.CategoryName)
	assert.True(t, got.Date.Equal(day(1)))
	assert.True(t, got.UpdatedAt.Equal(day(3)))

	older := incoming
	older.UpdatedAt = time.Time{}
	got = mergeFields(base, stored, older)
	assert.True(t, got.UpdatedAt.Equal(day(2)))
}
