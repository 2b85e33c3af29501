// Package common contains shared functionality for command handlers
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"fjacquet/kakeibo/internal/common"
	"fjacquet/kakeibo/internal/currencyutils"
	"fjacquet/kakeibo/internal/dateutils"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/validation"

	"github.com/dustin/go-humanize"
)

const memoWidth = 24

// WriteTransactions renders txs to w in format (table, csv or json).
func WriteTransactions(w io.Writer, txs []models.Transaction, format string, now time.Time) error {
	if err := validation.IsValidOutputFormat(format); err != nil {
		return err
	}
	switch format {
	case validation.FormatCSV:
		return common.WriteCSV(w, txs, common.DefaultDelimiter)
	case validation.FormatJSON:
		rows := make([]common.TransactionRow, 0, len(txs))
		for _, tx := range txs {
			rows = append(rows, common.ToRow(tx))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	default:
		return PrintTransactions(w, txs, now)
	}
}

// PrintTransactions writes one table row per transaction.
func PrintTransactions(w io.Writer, txs []models.Transaction, now time.Time) error {
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "取引はありません")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCATEGORY\tMEMO\tSOURCE\tUPDATED")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ShortID(tx),
			dateutils.ToISODate(tx.Date),
			currencyutils.FormatOptionalYen(tx.Amount),
			dashIfEmpty(tx.CategoryOrEmpty()),
			dashIfEmpty(truncate(deref(tx.Memo), memoWidth)),
			sourceLabel(tx),
			humanize.RelTime(tx.UpdatedAt, now, "ago", "from now"))
	}
	return tw.Flush()
}

// PrintTransaction writes every field of tx, one per line.
func PrintTransaction(w io.Writer, tx models.Transaction, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", tx.ID)
	fmt.Fprintf(tw, "Date:\t%s\n", dateutils.ToJapaneseDate(tx.Date))
	fmt.Fprintf(tw, "Amount:\t%s\n", currencyutils.FormatOptionalYen(tx.Amount))
	fmt.Fprintf(tw, "Category:\t%s\n", dashIfEmpty(tx.CategoryOrEmpty()))
	fmt.Fprintf(tw, "Memo:\t%s\n", dashIfEmpty(deref(tx.Memo)))
	fmt.Fprintf(tw, "Source:\t%s\n", sourceLabel(tx))
	if tx.SourceText != nil {
		fmt.Fprintf(tw, "Shared text:\t%s\n", strings.ReplaceAll(*tx.SourceText, "\n", " "))
	}
	fmt.Fprintf(tw, "Created:\t%s (%s)\n", tx.CreatedAt.Format(time.RFC3339), humanize.RelTime(tx.CreatedAt, now, "ago", "from now"))
	fmt.Fprintf(tw, "Updated:\t%s (%s)\n", tx.UpdatedAt.Format(time.RFC3339), humanize.RelTime(tx.UpdatedAt, now, "ago", "from now"))
	fmt.Fprintf(tw, "Version:\t%d\n", tx.Version)
	return tw.Flush()
}

// ShortID is the first block of the transaction id, enough to tell rows apart.
func ShortID(tx models.Transaction) string {
	return tx.ID.String()[:8]
}

func sourceLabel(tx models.Transaction) string {
	label := string(tx.Source)
	if tx.IsPrivate {
		label += " (private)"
	}
	return label
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
