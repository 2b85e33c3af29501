// Package total sums spending over a month or a date range.
package total

import (
	"context"
	"fmt"
	"io"
	"time"

	"fjacquet/kakeibo/cmd/common"
	"fjacquet/kakeibo/cmd/root"
	"fjacquet/kakeibo/internal/container"
	"fjacquet/kakeibo/internal/currencyutils"
	"fjacquet/kakeibo/internal/dateutils"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Options holds the total flags.
type Options struct {
	Month    string
	From     string
	To       string
	Category string
}

var (
	opts Options

	// Cmd represents the total command
	Cmd = &cobra.Command{
		Use:   "total",
		Short: "Sum spending",
		Long: `Sum the amounts of transactions in a month (the current one by default) or
in an inclusive date range given with --from and --to. Transactions without
an amount count as nothing.`,
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
	Cmd.Flags().StringVar(&opts.Month, "month", "", "Month to sum (YYYY-MM), default the current month")
	Cmd.Flags().StringVar(&opts.From, "from", "", "First date of the range; requires --to")
	Cmd.Flags().StringVar(&opts.To, "to", "", "Last date of the range; requires --from")
	Cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "Only this category")
}

// Run computes and prints the total.
func Run(ctx context.Context, c *container.Container, out io.Writer, o Options, now time.Time) (decimal.Decimal, error) {
	category := common.OptionalString(o.Category)

	var (
		start, end time.Time
		sum        decimal.Decimal
		err        error
	)
	if o.From != "" || o.To != "" {
		if start, end, err = resolveRange(o, now); err != nil {
			return decimal.Zero, err
		}
		sum, err = c.GetRepository().CalculateTotal(ctx, start, end, category)
	} else {
		var month time.Time
		if month, err = common.ParseMonth(o.Month, now, time.Local); err != nil {
			return decimal.Zero, err
		}
		start, end = dateutils.StartOfMonth(month), dateutils.EndOfMonth(month)
		sum, err = c.GetUseCases().MonthlyTotal(ctx, month, category)
	}
	if err != nil {
		return decimal.Zero, err
	}

	label := "全体"
	if category != nil {
		label = *category
	}
	fmt.Fprintf(out, "%s 〜 %s %s: %s\n",
		dateutils.ToISODate(start), dateutils.ToISODate(end), label, currencyutils.FormatYen(sum))
	return sum, nil
}

func resolveRange(o Options, now time.Time) (time.Time, time.Time, error) {
	if o.From == "" || o.To == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--from and --to must be given together")
	}
	from, err := common.ParseDateFlag(o.From, now, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	to, err := common.ParseDateFlag(o.To, now, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	start, end := dateutils.StartOfDay(*from), dateutils.EndOfDay(*to)
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s is after --to %s", o.From, o.To)
	}
	return start, end, nil
}
