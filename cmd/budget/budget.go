// Package budget reports spending against the budgets in budgets.yaml.
package budget

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"fjacquet/kakeibo/cmd/common"
	"fjacquet/kakeibo/cmd/root"
	"fjacquet/kakeibo/internal/budget"
	"fjacquet/kakeibo/internal/container"
	"fjacquet/kakeibo/internal/currencyutils"
	"fjacquet/kakeibo/internal/dateutils"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/store"

	"github.com/spf13/cobra"
)

// Options holds the budget flags.
type Options struct {
	File     string // replaces budgets.file
	Date     string // reference date for weekly and monthly budgets
	OverOnly bool
}

var (
	opts Options

	// Cmd represents the budget command
	Cmd = &cobra.Command{
		Use:   "budget",
		Short: "Show spending against budgets",
		Long: `Load the budgets declared in budgets.yaml and show, for each one, the
spending in its period, the remaining amount and the progress rate. Weekly
and monthly budgets cover the week or month containing --date (today by
default).`,
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
	Cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Budgets file (default: budgets.file from the config)")
	Cmd.Flags().StringVarP(&opts.Date, "date", "d", "", "Reference date for weekly and monthly budgets")
	Cmd.Flags().BoolVar(&opts.OverOnly, "over", false, "Only show budgets that are exceeded")
}

// Run loads the budgets, computes their progress and prints it.
func Run(ctx context.Context, c *container.Container, out io.Writer, o Options, now time.Time) ([]models.BudgetProgress, error) {
	ref := now
	date, err := common.ParseDateFlag(o.Date, now, time.Local)
	if err != nil {
		return nil, err
	}
	if date != nil {
		ref = *date
	}

	budgets := c.GetBudgetStore()
	if o.File != "" {
		budgets = store.NewBudgetStore(o.File, c.GetLogger())
	}
	entries, err := budgets.LoadBudgets()
	if err != nil {
		return nil, err
	}
	declared, err := budget.FromEntries(entries, ref, time.Local)
	if err != nil {
		return nil, err
	}

	progress, err := c.GetCalculator().ExecuteAll(ctx, declared)
	if err != nil {
		return nil, err
	}
	if o.OverOnly {
		over := progress[:0]
		for _, p := range progress {
			if p.IsOverBudget() {
				over = append(over, p)
			}
		}
		progress = over
	}
	return progress, printProgress(out, progress, len(declared))
}

func printProgress(out io.Writer, progress []models.BudgetProgress, declared int) error {
	if declared == 0 {
		_, err := fmt.Fprintln(out, "予算が設定されていません")
		return err
	}
	if len(progress) == 0 {
		_, err := fmt.Fprintln(out, "超過している予算はありません")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tPERIOD\tRANGE\tBUDGET\tSPENT\tREMAINING\tRATE\tSTATUS")
	for _, p := range progress {
		status := "OK"
		if p.IsOverBudget() {
			status = "超過"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s〜%s\t%s\t%s\t%s\t%.0f%%\t%s\n",
			categoryLabel(p.Budget),
			p.Budget.Period,
			dateutils.ToISODate(p.Budget.StartDate),
			dateutils.ToISODate(p.Budget.EndDate),
			currencyutils.FormatYen(p.Budget.Amount),
			currencyutils.FormatYen(p.CurrentSpending),
			currencyutils.FormatYen(p.Remaining()),
			p.ProgressRate()*100,
			status)
	}
	return tw.Flush()
}

func categoryLabel(b models.Budget) string {
	if b.CategoryName == nil {
		return "全体"
	}
	return *b.CategoryName
}
