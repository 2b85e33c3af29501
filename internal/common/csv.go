// Package common provides the CSV export and import of transactions.
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/kakeibo/internal/currencyutils"
	"fjacquet/kakeibo/internal/dateutils"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
)

// DefaultDelimiter separates CSV fields unless configured otherwise.
const DefaultDelimiter = ','

// TransactionRow is the CSV shape of a transaction. Optional fields are
// written as empty cells.
type TransactionRow struct {
	ID         string `csv:"id" json:"id"`
	Date       string `csv:"date" json:"date"`
	Amount     string `csv:"amount" json:"amount,omitempty"`
	Memo       string `csv:"memo" json:"memo,omitempty"`
	Category   string `csv:"category" json:"category,omitempty"`
	Source     string `csv:"source" json:"source"`
	IsPrivate  bool   `csv:"is_private" json:"is_private"`
	CreatedAt  string `csv:"created_at" json:"created_at"`
	UpdatedAt  string `csv:"updated_at" json:"updated_at"`
	SourceText string `csv:"source_text" json:"source_text,omitempty"`
}

// ToRow converts a transaction for export.
func ToRow(tx models.Transaction) TransactionRow {
	row := TransactionRow{
		ID:        tx.ID.String(),
		Date:      dateutils.ToISODate(tx.Date),
		Source:    string(tx.Source),
		IsPrivate: tx.IsPrivate,
		CreatedAt: tx.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: tx.UpdatedAt.Format(time.RFC3339Nano),
	}
	if tx.Amount != nil {
		row.Amount = tx.Amount.String()
	}
	if tx.Memo != nil {
		row.Memo = *tx.Memo
	}
	if tx.CategoryName != nil {
		row.Category = *tx.CategoryName
	}
	if tx.SourceText != nil {
		row.SourceText = *tx.SourceText
	}
	return row
}

// FromRow rebuilds a transaction from an imported row. Dates are read in
// loc; a row without an id gets a fresh one.
func FromRow(row TransactionRow, loc *time.Location) (models.Transaction, error) {
	amount, err := currencyutils.ParseOptionalAmount(row.Amount)
	if err != nil {
		return models.Transaction{}, err
	}

	b := models.NewTransactionBuilder().
		WithAmount(amount).
		WithSource(models.ParseTransactionSource(row.Source)).
		AsPrivate(row.IsPrivate)

	if id := strings.TrimSpace(row.ID); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("invalid id %q: %w", row.ID, err)
		}
		b = b.WithID(parsed)
	}
	if strings.TrimSpace(row.Date) != "" {
		date, _, err := dateutils.ParseDate(row.Date, loc)
		if err != nil {
			return models.Transaction{}, err
		}
		b = b.WithDate(date)
	}
	if row.Memo != "" {
		b = b.WithMemo(row.Memo)
	}
	if row.Category != "" {
		b = b.WithCategory(row.Category)
	}
	if row.SourceText != "" {
		b = b.WithSourceText(row.SourceText)
	}
	return b.Build()
}

// WriteCSV marshals transactions to w.
func WriteCSV(w io.Writer, transactions []models.Transaction, delimiter rune) error {
	rows := make([]TransactionRow, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, ToRow(tx))
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WriteTransactionsToCSV writes transactions to csvFile, creating its
// directory when needed.
func WriteTransactionsToCSV(transactions []models.Transaction, csvFile string, delimiter rune, logger logging.Logger) error {
	logger = logging.OrDefault(logger)
	if transactions == nil {
		return fmt.Errorf("cannot write nil transactions to CSV")
	}

	dir := filepath.Dir(csvFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		logger.WithError(err).Error("Failed to create directory")
		return fmt.Errorf("error creating directory: %w", err)
	}

	file, err := os.OpenFile(csvFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, models.PermissionExportFile)
	if err != nil {
		logger.WithError(err).Error("Failed to create CSV file")
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	if err := WriteCSV(file, transactions, delimiter); err != nil {
		logger.WithError(err).Error("Failed to marshal transactions to CSV")
		return err
	}

	logger.Info("Wrote transactions to CSV file",
		logging.Field{Key: logging.FieldOutputFile, Value: csvFile},
		logging.Field{Key: logging.FieldCount, Value: len(transactions)})
	return nil
}

// ReadCSVFile reads CSV data into a slice of structs using gocsv
func ReadCSVFile[TCSVRow any](filePath string, logger logging.Logger) ([]TCSVRow, error) {
	logger = logging.OrDefault(logger)

	file, err := os.Open(filePath)
	if err != nil {
		logger.WithError(err).Error("Failed to open CSV file")
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	var rows []TCSVRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		logger.WithError(err).Error("Failed to parse CSV file")
		return nil, fmt.Errorf("error parsing CSV file: %w", err)
	}

	logger.Debug("Read CSV data",
		logging.Field{Key: logging.FieldFile, Value: filePath},
		logging.Field{Key: logging.FieldCount, Value: len(rows)})
	return rows, nil
}

// ReadTransactionsFromCSV reads a file written by WriteTransactionsToCSV.
func ReadTransactionsFromCSV(filePath string, loc *time.Location, logger logging.Logger) ([]models.Transaction, error) {
	rows, err := ReadCSVFile[TransactionRow](filePath, logger)
	if err != nil {
		return nil, err
	}
	txs := make([]models.Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := FromRow(row, loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
