// Package remove deletes stored transactions.
package remove

import (
	"context"
	"fmt"
	"io"

	"fjacquet/kakeibo/cmd/common"
	"fjacquet/kakeibo/cmd/root"
	"fjacquet/kakeibo/internal/container"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd represents the delete command
var Cmd = &cobra.Command{
	Use:     "delete <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete transactions",
	Long:    `Delete one or more transactions by id. Deleting stops at the first failure.`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.OpenContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		_, err = Run(cmd.Context(), c, cmd.OutOrStdout(), args)
		return err
	},
}

// Run deletes each id in order and returns how many were removed. Every id
// is parsed before anything is deleted.
func Run(ctx context.Context, c *container.Container, out io.Writer, ids []string) (int, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, arg := range ids {
		id, err := common.ParseID(arg)
		if err != nil {
			return 0, err
		}
		parsed = append(parsed, id)
	}

	for i, id := range parsed {
		if err := c.GetUseCases().DeleteTransaction(ctx, id); err != nil {
			return i, err
		}
		fmt.Fprintf(out, "削除しました: %s\n", id)
	}
	return len(parsed), nil
}
