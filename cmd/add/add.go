// Package add records a transaction entered by hand.
package add

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
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/repository"

	"github.com/spf13/cobra"
)

// Options holds the add flags.
type Options struct {
	Amount   string
	Date     string
	Memo     string
	Category string
	Private  bool
}

var (
	opts Options

	// Cmd represents the add command
	Cmd = &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record a transaction entered by hand. Every field is optional: the date
defaults to today and the amount can be filled in later with update.`,
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
	Cmd.Flags().StringVarP(&opts.Amount, "amount", "a", "", "Amount in yen, e.g. 1200 or ¥1,200")
	Cmd.Flags().StringVarP(&opts.Date, "date", "d", "", "Transaction date (YYYY-MM-DD, YYYY/MM/DD or today)")
	Cmd.Flags().StringVarP(&opts.Memo, "memo", "m", "", "Free-text memo")
	Cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "Category name, e.g. 食費")
	Cmd.Flags().BoolVar(&opts.Private, "private", false, "Mark the transaction as private")
}

// Run saves a transaction built from o and prints its id.
func Run(ctx context.Context, c *container.Container, out io.Writer, o Options, now time.Time) (models.Transaction, error) {
	amount, err := common.ParseAmountFlag(o.Amount)
	if err != nil {
		return models.Transaction{}, err
	}
	date, err := common.ParseDateFlag(o.Date, now, time.Local)
	if err != nil {
		return models.Transaction{}, err
	}

	in := repository.AddInput{
		Amount:       amount,
		Memo:         o.Memo,
		CategoryName: o.Category,
		Source:       c.GetConfig().Source(),
		IsPrivate:    o.Private,
	}
	if date != nil {
		in.Date = *date
	}

	if o.Category != "" {
		if _, ok := models.FindPreset(o.Category); !ok {
			c.GetLogger().Debug("Category is not a preset", logging.Field{Key: logging.FieldCategory, Value: o.Category})
		}
	}

	tx, err := c.GetUseCases().AddTransaction(ctx, in)
	if err != nil {
		return models.Transaction{}, err
	}

	fmt.Fprintf(out, "追加しました: %s %s %s\n", tx.ID, dateutils.ToISODate(tx.Date), currencyutils.FormatOptionalYen(tx.Amount))
	return tx, nil
}
