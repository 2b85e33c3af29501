package entitystore

import (
	"fjacquet/kakeibo/internal/models"

	"github.com/shopspring/decimal"
)

// mergeFields resolves an update written against an older revision. Fields
// the writer left as they were in base keep the stored value; fields the
// writer changed win.
func mergeFields(base, stored, incoming models.Transaction) models.Transaction {
	out := stored

	if !sameDecimal(incoming.Amount, base.Amount) {
		out.Amount = incoming.Amount
	}
	if !incoming.Date.Equal(base.Date) {
		out.Date = incoming.Date
	}
	if !sameString(incoming.Memo, base.Memo) {
		out.Memo = incoming.Memo
	}
	if !sameString(incoming.CategoryName, base.CategoryName) {
		out.CategoryName = incoming.CategoryName
	}
	if !sameString(incoming.SourceText, base.SourceText) {
		out.SourceText = incoming.SourceText
	}
	if incoming.Source != base.Source {
		out.Source = incoming.Source
	}
	if incoming.IsPrivate != base.IsPrivate {
		out.IsPrivate = incoming.IsPrivate
	}
	if incoming.UpdatedAt.After(stored.UpdatedAt) {
		out.UpdatedAt = incoming.UpdatedAt
	}
	return out
}

func sameDecimal(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
