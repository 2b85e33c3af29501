// Package batch imports transactions from one or more CSV exports into the
// repository.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fjacquet/kakeibo/internal/common"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateRange represents a date range with start and end dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String returns the date range in the format "YYYY-MM-DD_YYYY-MM-DD"
func (dr DateRange) String() string {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s_%s",
		dr.Start.Format("2006-01-02"),
		dr.End.Format("2006-01-02"))
}

// Merge combines this date range with another, returning the overall range
func (dr DateRange) Merge(other DateRange) DateRange {
	start := dr.Start
	end := dr.End

	if dr.Start.IsZero() {
		start = other.Start
	} else if !other.Start.IsZero() && other.Start.Before(start) {
		start = other.Start
	}

	if dr.End.IsZero() {
		end = other.End
	} else if !other.End.IsZero() && other.End.After(end) {
		end = other.End
	}

	return DateRange{Start: start, End: end}
}

// Saver is the part of the repository the importer writes through.
type Saver interface {
	Save(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Fetch(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

// Result summarizes an import run.
type Result struct {
	Files      []string
	Read       int
	Imported   int
	Existing   int // rows whose id is already stored
	Duplicates int // rows that look like another row of the same run
	DateRange  DateRange
}

// Importer reads CSV exports and saves their rows.
type Importer struct {
	saver  Saver
	logger logging.Logger
	loc    *time.Location
}

// NewImporter creates an Importer. Dates without an offset are read in loc.
func NewImporter(saver Saver, logger logging.Logger, loc *time.Location) *Importer {
	if loc == nil {
		loc = time.Local
	}
	return &Importer{
		saver:  saver,
		logger: logging.OrDefault(logger),
		loc:    loc,
	}
}

// CollectFiles expands path into the CSV files to import: the file itself,
// or every *.csv directly inside a directory, sorted by name.
func (im *Importer) CollectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Import reads every file, orders the rows chronologically and saves the
// ones not already stored. Likely duplicates are reported but still saved.
// The first save failure stops the run.
func (im *Importer) Import(ctx context.Context, files []string) (Result, error) {
	res := Result{Files: files}

	var all []models.Transaction
	for _, file := range files {
		txs, err := common.ReadTransactionsFromCSV(file, im.loc, im.logger)
		if err != nil {
			return res, fmt.Errorf("%s: %w", filepath.Base(file), err)
		}
		im.logger.Debug("Read import file",
			logging.Field{Key: logging.FieldFile, Value: filepath.Base(file)},
			logging.Field{Key: logging.FieldCount, Value: len(txs)})
		all = append(all, txs...)
	}
	res.Read = len(all)

	sortTransactionsChronologically(all)
	res.Duplicates = im.detectAndLogDuplicates(all)
	res.DateRange = CalculateDateRangeFromTransactions(all)

	for _, tx := range all {
		existing, err := im.saver.Fetch(ctx, tx.ID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Existing++
			continue
		}
		if _, err := im.saver.Save(ctx, tx); err != nil {
			return res, err
		}
		res.Imported++
	}

	im.logger.Info("Imported transactions",
		logging.Field{Key: "files", Value: len(files)},
		logging.Field{Key: logging.FieldCount, Value: res.Imported},
		logging.Field{Key: "existing", Value: res.Existing},
		logging.Field{Key: "date_range", Value: res.DateRange.String()})
	return res, nil
}

// sortTransactionsChronologically sorts by date, then creation time.
func sortTransactionsChronologically(transactions []models.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		if !transactions[i].Date.Equal(transactions[j].Date) {
			return transactions[i].Date.Before(transactions[j].Date)
		}
		return transactions[i].CreatedAt.Before(transactions[j].CreatedAt)
	})
}

// detectAndLogDuplicates counts rows that match an earlier row of the same
// run. Transactions must be sorted by date.
func (im *Importer) detectAndLogDuplicates(transactions []models.Transaction) int {
	duplicateCount := 0
	for i := 1; i < len(transactions); i++ {
		for j := i - 1; j >= 0 && sameDay(transactions[i].Date, transactions[j].Date); j-- {
			if arePotentialDuplicates(transactions[i], transactions[j]) {
				duplicateCount++
				im.logger.Warn("Potential duplicate transaction",
					logging.Field{Key: logging.FieldDate, Value: transactions[i].Date.Format("2006-01-02")},
					logging.Field{Key: logging.FieldAmount, Value: amountString(transactions[i].Amount)},
					logging.Field{Key: logging.FieldTransactionID, Value: transactions[i].ID.String()})
				break
			}
		}
	}

	if duplicateCount > 0 {
		im.logger.Warn("Found potential duplicate transactions",
			logging.Field{Key: logging.FieldCount, Value: duplicateCount})
	}
	return duplicateCount
}

// arePotentialDuplicates reports two distinct rows with the same day,
// amount and memo.
func arePotentialDuplicates(tx1, tx2 models.Transaction) bool {
	if tx1.ID == tx2.ID {
		return false
	}
	if !sameDay(tx1.Date, tx2.Date) {
		return false
	}
	if amountString(tx1.Amount) != amountString(tx2.Amount) {
		return false
	}
	return normalizedMemo(tx1) == normalizedMemo(tx2)
}

// CalculateDateRangeFromTransactions calculates the overall date range from a set of transactions
func CalculateDateRangeFromTransactions(transactions []models.Transaction) DateRange {
	if len(transactions) == 0 {
		return DateRange{}
	}

	start := transactions[0].Date
	end := transactions[0].Date

	for _, tx := range transactions {
		if tx.Date.Before(start) {
			start = tx.Date
		}
		if tx.Date.After(end) {
			end = tx.Date
		}
	}

	return DateRange{Start: start, End: end}
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func amountString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func normalizedMemo(tx models.Transaction) string {
	if tx.Memo == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*tx.Memo))
}
