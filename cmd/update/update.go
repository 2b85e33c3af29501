// Package update edits the fields of a stored transaction.
package update

import (
	"context"
	"fmt"
	"io"
	"time"

	"fjacquet/kakeibo/cmd/common"
	"fjacquet/kakeibo/cmd/root"
	"fjacquet/kakeibo/internal/container"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/repoerror"

	"github.com/spf13/cobra"
)

// Options lists the fields to change. Nil leaves a field as it is; an empty
// string clears it.
type Options struct {
	Amount   *string
	Date     *string
	Memo     *string
	Category *string
	Private  *bool
}

// Empty reports whether no field would change.
func (o Options) Empty() bool {
	return o.Amount == nil && o.Date == nil && o.Memo == nil && o.Category == nil && o.Private == nil
}

var (
	amountFlag, dateFlag, memoFlag, categoryFlag string
	privateFlag                                  bool

	// Cmd represents the update command
	Cmd = &cobra.Command{
		Use:   "update <id>",
		Short: "Change a transaction",
		Long: `Change the fields of a transaction. Only the flags given are applied; pass
an empty value to clear the amount, memo or category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := optionsFromFlags(cmd)
			if o.Empty() {
				return fmt.Errorf("nothing to update: pass at least one of --amount, --date, --memo, --category, --private")
			}
			c, err := root.OpenContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			_, err = Run(cmd.Context(), c, cmd.OutOrStdout(), args[0], o, time.Now())
			return err
		},
	}
)

func init() {
	Cmd.Flags().StringVarP(&amountFlag, "amount", "a", "", "New amount; empty clears it")
	Cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "New date")
	Cmd.Flags().StringVarP(&memoFlag, "memo", "m", "", "New memo; empty clears it")
	Cmd.Flags().StringVarP(&categoryFlag, "category", "c", "", "New category; empty clears it")
	Cmd.Flags().BoolVar(&privateFlag, "private", false, "Mark as private (--private=false to unmark)")
}

func optionsFromFlags(cmd *cobra.Command) Options {
	var o Options
	flags := cmd.Flags()
	if flags.Changed("amount") {
		o.Amount = &amountFlag
	}
	if flags.Changed("date") {
		o.Date = &dateFlag
	}
	if flags.Changed("memo") {
		o.Memo = &memoFlag
	}
	if flags.Changed("category") {
		o.Category = &categoryFlag
	}
	if flags.Changed("private") {
		o.Private = &privateFlag
	}
	return o
}

// Apply returns tx with the changes in o. ID, CreatedAt and Source never
// change.
func Apply(tx models.Transaction, o Options, now time.Time) (models.Transaction, error) {
	if o.Amount != nil {
		amount, err := common.ParseAmountFlag(*o.Amount)
		if err != nil {
			return tx, err
		}
		tx.Amount = amount
	}
	if o.Date != nil {
		date, err := common.ParseDateFlag(*o.Date, now, time.Local)
		if err != nil {
			return tx, err
		}
		if date == nil {
			return tx, fmt.Errorf("the date cannot be cleared")
		}
		tx.Date = *date
	}
	if o.Memo != nil {
		tx.Memo = common.OptionalString(*o.Memo)
	}
	if o.Category != nil {
		tx.CategoryName = common.OptionalString(*o.Category)
	}
	if o.Private != nil {
		tx.IsPrivate = *o.Private
	}
	return tx, nil
}

// Run loads the transaction with id, applies o and stores the result.
func Run(ctx context.Context, c *container.Container, out io.Writer, id string, o Options, now time.Time) (models.Transaction, error) {
	uid, err := common.ParseID(id)
	if err != nil {
		return models.Transaction{}, err
	}
	current, err := c.GetUseCases().GetTransaction(ctx, uid)
	if err != nil {
		return models.Transaction{}, err
	}
	if current == nil {
		return models.Transaction{}, repoerror.ErrNotFound
	}

	changed, err := Apply(*current, o, now)
	if err != nil {
		return models.Transaction{}, err
	}
	updated, err := c.GetUseCases().UpdateTransaction(ctx, changed)
	if err != nil {
		return models.Transaction{}, err
	}

	fmt.Fprintf(out, "更新しました: %s (version %d)\n", updated.ID, updated.Version)
	return updated, nil
}
