// Package show prints one transaction in full.
package show

import (
	"context"
	"io"
	"time"

	"fjacquet/kakeibo/cmd/common"
	"fjacquet/kakeibo/cmd/root"
	"fjacquet/kakeibo/internal/container"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/repoerror"

	"github.com/spf13/cobra"
)

// Cmd represents the show command
var Cmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a transaction",
	Long:  `Show every field of a transaction, including the original shared text.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.OpenContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		_, err = Run(cmd.Context(), c, cmd.OutOrStdout(), args[0], time.Now())
		return err
	},
}

// Run fetches and prints the transaction with id. A missing record is
// repoerror.ErrNotFound.
func Run(ctx context.Context, c *container.Container, out io.Writer, id string, now time.Time) (models.Transaction, error) {
	uid, err := common.ParseID(id)
	if err != nil {
		return models.Transaction{}, err
	}
	tx, err := c.GetUseCases().GetTransaction(ctx, uid)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx == nil {
		return models.Transaction{}, repoerror.ErrNotFound
	}
	return *tx, common.PrintTransaction(out, *tx, now)
}
