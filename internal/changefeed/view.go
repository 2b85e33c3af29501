package changefeed

import (
	"context"
	"sort"
	"sync"

	"fjacquet/kakeibo/internal/entitystore"
	"fjacquet/kakeibo/internal/models"

	"github.com/google/uuid"
)

// View is an in-memory copy of the transactions, kept current by applying
// changes. Subscribe its Apply method to a Poller.
type View struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.Transaction
}

// NewView returns a view seeded with txs.
func NewView(txs []models.Transaction) *View {
	v := &View{records: make(map[uuid.UUID]models.Transaction, len(txs))}
	for _, tx := range txs {
		v.records[tx.ID] = tx
	}
	return v
}

// Apply folds one change into the view. Changes older than the held
// version are ignored, so replaying history is harmless.
func (v *View) Apply(_ context.Context, c entitystore.Change) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	current, ok := v.records[c.RecordID]
	if c.Op == entitystore.OpDelete {
		if !ok || current.Version <= c.Version {
			delete(v.records, c.RecordID)
		}
		return nil
	}
	if ok && current.Version > c.Version {
		return nil
	}
	v.records[c.RecordID] = c.Record
	return nil
}

// Get returns the held copy of id.
func (v *View) Get(id uuid.UUID) (models.Transaction, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	tx, ok := v.records[id]
	return tx, ok
}

// Len returns the number of held transactions.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}

// All returns the held transactions, newest date first.
func (v *View) All() []models.Transaction {
	v.mu.RLock()
	out := make([]models.Transaction, 0, len(v.records))
	for _, tx := range v.records {
		out = append(out, tx)
	}
	v.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
