// Package entitystore persists transactions in an encrypted SQLite file that
// both process contexts open at the same shared location.
//
// Filter columns (date, category) are stored in clear; amount, memo, shared
// text and every change_history snapshot are sealed with a key derived from
// the store passphrase. Each commit appends a change_history row so the other
// context can observe it.
package entitystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// DefaultBatchSize is the number of rows read per query in Scan.
	DefaultBatchSize = 20
	// DefaultBusyTimeout is how long a writer waits for the other context.
	DefaultBusyTimeout = 5 * time.Second

	metaSalt     = "kdf_salt"
	metaVerifier = "verifier"
)

// ErrNoRecord is returned when no row exists for an ID.
var ErrNoRecord = errors.New("no such record")

// Options configures Open.
type Options struct {
	Directory   string // parent of the group directory; user config dir when empty
	GroupID     string
	SchemaName  string
	Passphrase  string
	Author      models.TransactionSource // context recorded in change_history
	BusyTimeout time.Duration
	Logger      logging.Logger

	// OnCommit runs after every successful write, outside the SQL transaction.
	OnCommit func(ctx context.Context, c Change)
}

func (o Options) withDefaults() (Options, error) {
	if o.Directory == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return o, fmt.Errorf("resolve store directory: %w", err)
		}
		o.Directory = dir
	}
	if o.GroupID == "" {
		o.GroupID = models.DefaultGroupIdentifier
	}
	if o.SchemaName == "" {
		o.SchemaName = models.DefaultSchemaName
	}
	if o.Author == "" {
		o.Author = models.SourceApp
	}
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = DefaultBusyTimeout
	}
	o.Logger = logging.OrDefault(o.Logger)
	return o, nil
}

// ResolvePath returns the store file both contexts open.
func ResolvePath(directory, groupID, schemaName string) string {
	return filepath.Join(directory, groupID, schemaName+".sqlite")
}

// Store is an open entity store. It is safe for concurrent use.
type Store struct {
	db       *sql.DB
	path     string
	author   models.TransactionSource
	sealer   *sealer
	logger   logging.Logger
	onCommit func(ctx context.Context, c Change)
}

// Open creates or opens the store, applies migrations and checks the
// passphrase. Call it once per process and Close it at shutdown.
func Open(ctx context.Context, opts Options) (*Store, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if opts.Passphrase == "" {
		return nil, errors.New("store passphrase is required")
	}

	path := ResolvePath(opts.Directory, opts.GroupID, opts.SchemaName)
	if err := os.MkdirAll(filepath.Dir(path), models.PermissionStoreDir); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, models.PermissionStoreFile)
	if err != nil {
		return nil, fmt.Errorf("create store file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create store file: %w", err)
	}

	dsn := buildDSN(path, opts.BusyTimeout)
	if err := runMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:       db,
		path:     path,
		author:   opts.Author,
		logger:   opts.Logger,
		onCommit: opts.OnCommit,
	}
	if err := s.unlock(ctx, opts.Passphrase); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Debug("Entity store opened",
		logging.Field{Key: logging.FieldStorePath, Value: path},
		logging.Field{Key: logging.FieldAuthor, Value: string(opts.Author)})
	return s, nil
}

func buildDSN(path string, busy time.Duration) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		path, busy.Milliseconds())
}

// unlock derives the key from the per-store salt and checks it against the
// verifier written by whichever context created the store.
func (s *Store) unlock(ctx context.Context, passphrase string) error {
	salt, err := s.metaValue(ctx, metaSalt, newSalt)
	if err != nil {
		return err
	}
	sl, err := newSealer(passphrase, salt)
	if err != nil {
		return err
	}
	verifier, err := s.metaValue(ctx, metaVerifier, func() ([]byte, error) {
		return sl.seal([]byte(verifierPlaintext), verifierAAD)
	})
	if err != nil {
		return err
	}
	plain, err := sl.open(verifier, verifierAAD)
	if err != nil || string(plain) != verifierPlaintext {
		return ErrBadPassphrase
	}
	s.sealer = sl
	return nil
}

// metaValue returns the stored value for key, inserting create() first when
// the key is absent. INSERT OR IGNORE keeps the first writer's value when both
// contexts initialize at once.
func (s *Store) metaValue(ctx context.Context, key string, create func() ([]byte, error)) ([]byte, error) {
	candidate, err := create()
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO store_meta (key, value) VALUES (?, ?)`, key, candidate); err != nil {
		return nil, fmt.Errorf("write store meta %s: %w", key, err)
	}
	var value []byte
	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM store_meta WHERE key = ?`, key).Scan(&value); err != nil {
		return nil, fmt.Errorf("read store meta %s: %w", key, err)
	}
	return value, nil
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Author returns the context this handle writes as.
func (s *Store) Author() models.TransactionSource {
	return s.author
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectColumns = `SELECT row_id, id, date_s, date_nsec, category_name, source, is_private,
	created_at_s, created_at_nsec, updated_at_s, updated_at_nsec, version, payload`

type row struct {
	rowID int64
	tx    models.Transaction
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRow(sc rowScanner) (row, error) {
	var (
		r                      row
		id, source             string
		category               sql.NullString
		date, created, updated stamp
		version                int64
		isPrivate              bool
		payload                []byte
	)
	if err := sc.Scan(&r.rowID, &id, &date.Sec, &date.Nsec, &category, &source, &isPrivate,
		&created.Sec, &created.Nsec, &updated.Sec, &updated.Nsec, &version, &payload); err != nil {
		return r, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return r, fmt.Errorf("row %d: invalid id %q: %w", r.rowID, id, err)
	}
	fields, err := s.openFields(uid, payload)
	if err != nil {
		return r, fmt.Errorf("row %d: %w", r.rowID, err)
	}
	r.tx = models.Transaction{
		ID:         uid,
		Amount:     fields.Amount,
		Date:       date.time(),
		Memo:       fields.Memo,
		SourceText: fields.SourceText,
		Source:     models.ParseTransactionSource(source),
		IsPrivate:  isPrivate,
		CreatedAt:  created.time(),
		UpdatedAt:  updated.time(),
		Version:    version,
	}
	if category.Valid {
		r.tx.CategoryName = &category.String
	}
	return r, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// firstRow returns the earliest stored row for id.
func (s *Store) firstRow(ctx context.Context, q querier, id uuid.UUID) (row, error) {
	r, err := s.scanRow(q.QueryRowContext(ctx,
		selectColumns+` FROM transactions WHERE id = ? ORDER BY row_id LIMIT 1`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNoRecord
	}
	return r, err
}

// Get returns the first stored transaction with id, or ErrNoRecord.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	r, err := s.firstRow(ctx, s.db, id)
	if err != nil {
		return models.Transaction{}, err
	}
	return r.tx, nil
}

// Insert stores tx as a new row, even when a row with the same ID exists.
// The returned value carries the assigned version.
func (s *Store) Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	tx.Version = 1
	var change Change
	err := s.withTx(ctx, func(dbtx *sql.Tx) error {
		payload, err := s.sealFields(tx)
		if err != nil {
			return err
		}
		date, created, updated := stampOf(tx.Date), stampOf(tx.CreatedAt), stampOf(tx.UpdatedAt)
		res, err := dbtx.ExecContext(ctx, `INSERT INTO transactions
			(id, date_s, date_nsec, category_name, source, is_private,
			 created_at_s, created_at_nsec, updated_at_s, updated_at_nsec, version, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.ID.String(), date.Sec, date.Nsec, nullString(tx.CategoryName), string(tx.Source), tx.IsPrivate,
			created.Sec, created.Nsec, updated.Sec, updated.Nsec, tx.Version, payload)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		change, err = s.appendHistory(ctx, dbtx, OpInsert, rowID, tx)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.committed(ctx, change)
	return tx, nil
}

// Update rewrites the first stored row for tx.ID under the merge policy and
// returns the merged value. ID and CreatedAt of the stored row are kept.
func (s *Store) Update(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	var (
		result models.Transaction
		change Change
	)
	err := s.withTx(ctx, func(dbtx *sql.Tx) error {
		cur, err := s.firstRow(ctx, dbtx, tx.ID)
		if err != nil {
			return err
		}

		next := tx
		if tx.Version != 0 && tx.Version != cur.tx.Version {
			base, found, err := s.historySnapshot(ctx, dbtx, cur.rowID, tx.Version)
			if err != nil {
				return err
			}
			if found {
				next = mergeFields(base, cur.tx, tx)
				s.logger.Debug("Merged concurrent edit",
					logging.Field{Key: logging.FieldTransactionID, Value: tx.ID.String()},
					logging.Field{Key: logging.FieldVersion, Value: cur.tx.Version})
			}
		}
		next.ID = cur.tx.ID
		next.CreatedAt = cur.tx.CreatedAt
		if next.UpdatedAt.Before(next.CreatedAt) {
			next.UpdatedAt = next.CreatedAt
		}
		next.Version = cur.tx.Version + 1

		payload, err := s.sealFields(next)
		if err != nil {
			return err
		}
		date, updated := stampOf(next.Date), stampOf(next.UpdatedAt)
		if _, err := dbtx.ExecContext(ctx, `UPDATE transactions SET
			date_s = ?, date_nsec = ?, category_name = ?, source = ?, is_private = ?,
			updated_at_s = ?, updated_at_nsec = ?, version = ?, payload = ?
			WHERE row_id = ?`,
			date.Sec, date.Nsec, nullString(next.CategoryName), string(next.Source), next.IsPrivate,
			updated.Sec, updated.Nsec, next.Version, payload, cur.rowID); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		change, err = s.appendHistory(ctx, dbtx, OpUpdate, cur.rowID, next)
		result = next
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.committed(ctx, change)
	return result, nil
}

// Delete removes the first stored row for id.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	var change Change
	err := s.withTx(ctx, func(dbtx *sql.Tx) error {
		cur, err := s.firstRow(ctx, dbtx, id)
		if err != nil {
			return err
		}
		if _, err := dbtx.ExecContext(ctx, `DELETE FROM transactions WHERE row_id = ?`, cur.rowID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		gone := cur.tx
		gone.Version++
		change, err = s.appendHistory(ctx, dbtx, OpDelete, cur.rowID, gone)
		return err
	})
	if err != nil {
		return err
	}
	s.committed(ctx, change)
	return nil
}

// Query narrows Scan. Nil fields impose no constraint; Start and End are
// inclusive.
type Query struct {
	Start        *time.Time
	End          *time.Time
	CategoryName *string
}

func (q Query) clauses() ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if q.Start != nil {
		start := stampOf(*q.Start)
		where = append(where, "(date_s > ? OR (date_s = ? AND date_nsec >= ?))")
		args = append(args, start.Sec, start.Sec, start.Nsec)
	}
	if q.End != nil {
		end := stampOf(*q.End)
		where = append(where, "(date_s < ? OR (date_s = ? AND date_nsec <= ?))")
		args = append(args, end.Sec, end.Sec, end.Nsec)
	}
	if q.CategoryName != nil {
		where = append(where, "category_name = ?")
		args = append(args, *q.CategoryName)
	}
	return where, args
}

// Scan streams rows matching q, newest date first and later insertions
// first within a date, calling fn once per batch of at most batchSize rows.
// Batches are read with keyset pagination so no query holds more than one
// batch in memory.
func (s *Store) Scan(ctx context.Context, q Query, batchSize int, fn func(batch []models.Transaction) error) error {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	var (
		after    bool
		lastDate stamp
		lastRow  int64
	)
	for {
		where, args := q.clauses()
		if after {
			where = append(where, `(date_s < ? OR (date_s = ? AND
				(date_nsec < ? OR (date_nsec = ? AND row_id < ?))))`)
			args = append(args, lastDate.Sec, lastDate.Sec, lastDate.Nsec, lastDate.Nsec, lastRow)
		}
		query := selectColumns + " FROM transactions"
		for i, clause := range where {
			if i == 0 {
				query += " WHERE " + clause
			} else {
				query += " AND " + clause
			}
		}
		query += " ORDER BY date_s DESC, date_nsec DESC, row_id DESC LIMIT ?"
		args = append(args, batchSize)

		batch, last, err := s.readBatch(ctx, query, args...)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
		after = true
		lastDate = stampOf(last.tx.Date)
		lastRow = last.rowID
	}
}

func (s *Store) readBatch(ctx context.Context, query string, args ...any) ([]models.Transaction, row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, row{}, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var (
		batch []models.Transaction
		last  row
	)
	for rows.Next() {
		r, err := s.scanRow(rows)
		if err != nil {
			return nil, row{}, fmt.Errorf("scan transaction: %w", err)
		}
		batch = append(batch, r.tx)
		last = r
	}
	if err := rows.Err(); err != nil {
		return nil, row{}, fmt.Errorf("iterate transactions: %w", err)
	}
	return batch, last, nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(dbtx); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) committed(ctx context.Context, c Change) {
	s.logger.Debug("Change committed",
		logging.Field{Key: logging.FieldOperation, Value: string(c.Op)},
		logging.Field{Key: logging.FieldTransactionID, Value: c.RecordID.String()},
		logging.Field{Key: logging.FieldSeq, Value: c.Seq})
	if s.onCommit != nil {
		s.onCommit(ctx, c)
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
