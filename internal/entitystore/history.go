package entitystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fjacquet/kakeibo/internal/models"

	"github.com/google/uuid"
)

// Op is the kind of write a change_history row records.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one committed write as read back from change_history.
type Change struct {
	Seq         int64
	RecordID    uuid.UUID
	RowID       int64
	Version     int64
	Op          Op
	Author      models.TransactionSource
	Record      models.Transaction // state after the write; last state for deletes
	CommittedAt time.Time
}

func (s *Store) appendHistory(ctx context.Context, dbtx *sql.Tx, op Op, rowID int64, tx models.Transaction) (Change, error) {
	payload, err := s.sealSnapshot(tx)
	if err != nil {
		return Change{}, err
	}
	now := time.Now()
	res, err := dbtx.ExecContext(ctx, `INSERT INTO change_history
		(record_id, row_id, version, op, author, payload, committed_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID.String(), rowID, tx.Version, string(op), string(s.author), payload, now.UnixNano())
	if err != nil {
		return Change{}, fmt.Errorf("append change history: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return Change{}, fmt.Errorf("append change history: %w", err)
	}
	return Change{
		Seq:         seq,
		RecordID:    tx.ID,
		RowID:       rowID,
		Version:     tx.Version,
		Op:          op,
		Author:      s.author,
		Record:      tx,
		CommittedAt: now,
	}, nil
}

// historySnapshot returns the record state stored at version for rowID.
func (s *Store) historySnapshot(ctx context.Context, dbtx *sql.Tx, rowID, version int64) (models.Transaction, bool, error) {
	var (
		recordID string
		payload  []byte
	)
	err := dbtx.QueryRowContext(ctx, `SELECT record_id, payload FROM change_history
		WHERE row_id = ? AND version = ? AND op IN ('insert', 'update')
		ORDER BY seq DESC LIMIT 1`, rowID, version).Scan(&recordID, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, false, nil
	}
	if err != nil {
		return models.Transaction{}, false, fmt.Errorf("read base revision: %w", err)
	}
	id, err := uuid.Parse(recordID)
	if err != nil {
		return models.Transaction{}, false, fmt.Errorf("read base revision: %w", err)
	}
	tx, err := s.openSnapshot(id, payload)
	if err != nil {
		return models.Transaction{}, false, fmt.Errorf("read base revision: %w", err)
	}
	return tx, true, nil
}

// ChangesSince returns up to limit changes with Seq > afterSeq, oldest first.
func (s *Store) ChangesSince(ctx context.Context, afterSeq int64, limit int) ([]Change, error) {
	if limit < 1 {
		limit = DefaultBatchSize
	}
	rows, err := s.db.QueryContext(ctx, `SELECT seq, record_id, row_id, version, op, author, payload, committed_at_ns
		FROM change_history WHERE seq > ? ORDER BY seq LIMIT ?`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query change history: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var (
			c           Change
			recordID    string
			op, author  string
			payload     []byte
			committedNs int64
		)
		if err := rows.Scan(&c.Seq, &recordID, &c.RowID, &c.Version, &op, &author, &payload, &committedNs); err != nil {
			return nil, fmt.Errorf("scan change history: %w", err)
		}
		if c.RecordID, err = uuid.Parse(recordID); err != nil {
			return nil, fmt.Errorf("change %d: invalid record id: %w", c.Seq, err)
		}
		if c.Record, err = s.openSnapshot(c.RecordID, payload); err != nil {
			return nil, fmt.Errorf("change %d: %w", c.Seq, err)
		}
		c.Op = Op(op)
		c.Author = models.ParseTransactionSource(author)
		c.CommittedAt = fromNanos(committedNs)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change history: %w", err)
	}
	return changes, nil
}

// LatestSeq returns the sequence number of the newest change, 0 when empty.
func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM change_history`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read latest change: %w", err)
	}
	return seq, nil
}
