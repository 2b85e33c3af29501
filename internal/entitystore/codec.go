package entitystore

import (
	"encoding/json"
	"fmt"
	"time"

	"fjacquet/kakeibo/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// sealedFields is the encrypted part of a transactions row.
type sealedFields struct {
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Memo       *string          `json:"memo,omitempty"`
	SourceText *string          `json:"source_text,omitempty"`
}

// stamp is a point in time as Unix seconds and a nanosecond part in
// [0, 1e9). Comparing (Sec, Nsec) pairs orders instants over the whole
// time.Time range, unlike UnixNano.
type stamp struct {
	Sec  int64 `json:"s"`
	Nsec int64 `json:"n"`
}

func stampOf(t time.Time) stamp {
	return stamp{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

func (s stamp) time() time.Time {
	return time.Unix(s.Sec, s.Nsec)
}

// snapshot is a complete record as written to change_history. Snapshots
// written before stamps were introduced carry only the *_ns fields.
type snapshot struct {
	ID           uuid.UUID        `json:"id"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Date         *stamp           `json:"date,omitempty"`
	Memo         *string          `json:"memo,omitempty"`
	CategoryName *string          `json:"category_name,omitempty"`
	SourceText   *string          `json:"source_text,omitempty"`
	Source       string           `json:"source"`
	IsPrivate    bool             `json:"is_private"`
	CreatedAt    *stamp           `json:"created_at,omitempty"`
	UpdatedAt    *stamp           `json:"updated_at,omitempty"`
	Version      int64            `json:"version"`

	LegacyDate      int64 `json:"date_ns,omitempty"`
	LegacyCreatedAt int64 `json:"created_at_ns,omitempty"`
	LegacyUpdatedAt int64 `json:"updated_at_ns,omitempty"`
}

func toSnapshot(tx models.Transaction) snapshot {
	date, created, updated := stampOf(tx.Date), stampOf(tx.CreatedAt), stampOf(tx.UpdatedAt)
	return snapshot{
		ID:           tx.ID,
		Amount:       tx.Amount,
		Date:         &date,
		Memo:         tx.Memo,
		CategoryName: tx.CategoryName,
		SourceText:   tx.SourceText,
		Source:       string(tx.Source),
		IsPrivate:    tx.IsPrivate,
		CreatedAt:    &created,
		UpdatedAt:    &updated,
		Version:      tx.Version,
	}
}

func (s snapshot) transaction() models.Transaction {
	return models.Transaction{
		ID:           s.ID,
		Amount:       s.Amount,
		Date:         stampOrNanos(s.Date, s.LegacyDate),
		Memo:         s.Memo,
		CategoryName: s.CategoryName,
		SourceText:   s.SourceText,
		Source:       models.ParseTransactionSource(s.Source),
		IsPrivate:    s.IsPrivate,
		CreatedAt:    stampOrNanos(s.CreatedAt, s.LegacyCreatedAt),
		UpdatedAt:    stampOrNanos(s.UpdatedAt, s.LegacyUpdatedAt),
		Version:      s.Version,
	}
}

func (s *Store) sealFields(tx models.Transaction) ([]byte, error) {
	raw, err := json.Marshal(sealedFields{Amount: tx.Amount, Memo: tx.Memo, SourceText: tx.SourceText})
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return s.sealer.seal(raw, recordAAD(tx.ID))
}

func (s *Store) openFields(id uuid.UUID, blob []byte) (sealedFields, error) {
	var f sealedFields
	raw, err := s.sealer.open(blob, recordAAD(id))
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("decode fields: %w", err)
	}
	return f, nil
}

func (s *Store) sealSnapshot(tx models.Transaction) ([]byte, error) {
	raw, err := json.Marshal(toSnapshot(tx))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return s.sealer.seal(raw, recordAAD(tx.ID))
}

func (s *Store) openSnapshot(id uuid.UUID, blob []byte) (models.Transaction, error) {
	raw, err := s.sealer.open(blob, recordAAD(id))
	if err != nil {
		return models.Transaction{}, err
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Transaction{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap.transaction(), nil
}

func recordAAD(id uuid.UUID) []byte {
	return []byte("transactions/" + id.String())
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns)
}

func stampOrNanos(st *stamp, ns int64) time.Time {
	if st != nil {
		return st.time()
	}
	return fromNanos(ns)
}
