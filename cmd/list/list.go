// Package list prints stored transactions, newest first.
package list

import (
	"context"
	"fmt"
	"io"
	"time"

	"fjacquet/kakeibo/cmd/common"
	"fjacquet/kakeibo/cmd/root"
	internalcommon "fjacquet/kakeibo/internal/common"
	"fjacquet/kakeibo/internal/container"
	"fjacquet/kakeibo/internal/dateutils"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/repository"
	"fjacquet/kakeibo/internal/validation"

	"github.com/spf13/cobra"
)

// Options holds the list flags.
type Options struct {
	From     string
	To       string
	Month    string
	Category string
	Format   string
	Output   string // CSV file to write instead of printing
}

var (
	opts Options

	// Cmd represents the list command
	Cmd = &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Long: `List transactions sorted by date, newest first. Filter by an inclusive
date range or a month and by category. --output writes the selection to a
CSV file instead of printing it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.OpenContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			_, err = Run(cmd.Context(), c, cmd.OutOrStdout(), opts, time.Now())
			return err
		},
	}
)

func init() {
	Cmd.Flags().StringVar(&opts.From, "from", "", "First date to include")
	Cmd.Flags().StringVar(&opts.To, "to", "", "Last date to include")
	Cmd.Flags().StringVar(&opts.Month, "month", "", "Month to list (YYYY-MM); ignored with --from or --to")
	Cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "Only this category")
	Cmd.Flags().StringVarP(&opts.Format, "format", "f", validation.FormatTable, "Output format: table, csv or json")
	Cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the transactions to this CSV file")
}

// BuildFilter turns the flag values into a repository filter. Bounds cover
// whole days.
func BuildFilter(o Options, now time.Time) (repository.Filter, error) {
	var f repository.Filter
	from, err := common.ParseDateFlag(o.From, now, time.Local)
	if err != nil {
		return f, fmt.Errorf("--from: %w", err)
	}
	to, err := common.ParseDateFlag(o.To, now, time.Local)
	if err != nil {
		return f, fmt.Errorf("--to: %w", err)
	}

	switch {
	case from != nil || to != nil:
		if from != nil {
			start := dateutils.StartOfDay(*from)
			f.Start = &start
		}
		if to != nil {
			end := dateutils.EndOfDay(*to)
			f.End = &end
		}
		if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
			return f, fmt.Errorf("--from %s is after --to %s", o.From, o.To)
		}
	case o.Month != "":
		month, err := common.ParseMonth(o.Month, now, time.Local)
		if err != nil {
			return f, err
		}
		start, end := dateutils.StartOfMonth(month), dateutils.EndOfMonth(month)
		f.Start, f.End = &start, &end
	}

	f.CategoryName = common.OptionalString(o.Category)
	return f, nil
}

// Run fetches the matching transactions and prints or exports them.
func Run(ctx context.Context, c *container.Container, out io.Writer, o Options, now time.Time) ([]models.Transaction, error) {
	if o.Format == "" {
		o.Format = validation.FormatTable
	}
	if err := validation.IsValidOutputFormat(o.Format); err != nil {
		return nil, err
	}
	filter, err := BuildFilter(o, now)
	if err != nil {
		return nil, err
	}

	txs, err := c.GetUseCases().GetTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	if o.Output != "" {
		if err := internalcommon.WriteTransactionsToCSV(txs, o.Output, internalcommon.DefaultDelimiter, c.GetLogger()); err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "%d件を書き出しました: %s\n", len(txs), o.Output)
		return txs, nil
	}
	return txs, common.WriteTransactions(out, txs, o.Format, now)
}
