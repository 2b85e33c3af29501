// Package importcsv restores transactions from CSV exports.
package importcsv

import (
	"context"
	"fmt"
	"io"
	"time"

	"fjacquet/kakeibo/cmd/root"
	"fjacquet/kakeibo/internal/batch"
	"fjacquet/kakeibo/internal/container"
	"fjacquet/kakeibo/internal/validation"

	"github.com/spf13/cobra"
)

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import <file-or-directory>",
	Short: "Import transactions from CSV exports",
	Long: `Import transactions written by "list --output". A directory imports
every .csv file inside it. Rows whose id is already stored are skipped;
rows that look like duplicates of each other are reported but imported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.OpenContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		_, err = Run(cmd.Context(), c, cmd.OutOrStdout(), args[0])
		return err
	},
}

// Run imports path into the store and prints a summary.
func Run(ctx context.Context, c *container.Container, out io.Writer, path string) (batch.Result, error) {
	resolved, err := validation.ResolveInputPath(path)
	if err != nil {
		return batch.Result{}, err
	}

	importer := batch.NewImporter(c.GetRepository(), c.GetLogger(), time.Local)
	files, err := importer.CollectFiles(resolved)
	if err != nil {
		return batch.Result{}, err
	}
	if len(files) == 0 {
		return batch.Result{}, fmt.Errorf("no CSV files in %s", resolved)
	}

	res, err := importer.Import(ctx, files)
	if err != nil {
		return res, err
	}

	fmt.Fprintf(out, "%d件を取り込みました (%dファイル, 読込 %d件, 登録済み %d件)\n",
		res.Imported, len(res.Files), res.Read, res.Existing)
	if res.Duplicates > 0 {
		fmt.Fprintf(out, "重複の可能性: %d件\n", res.Duplicates)
	}
	if r := res.DateRange.String(); r != "" {
		fmt.Fprintf(out, "期間: %s\n", r)
	}
	return res, nil
}
