// Package share turns shared text into a transaction, the way the share
// extension does.
package share

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
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

// Options holds the share flags.
type Options struct {
	Save     bool
	Category string // replaces the parsed category when set
	Private  bool
}

var (
	opts Options

	// Cmd represents the share command
	Cmd = &cobra.Command{
		Use:   "share [text...]",
		Short: "Parse shared text into a transaction",
		Long: `Parse text shared from a payment app, receipt or message and show the
extracted amount, date, memo and category. The text is read from the
arguments, or from stdin when none are given. With --save the result is
recorded as a share extension transaction together with the original text.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := common.ReadText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			c, err := root.OpenContainerAs(cmd.Context(), models.SourceShareExtension)
			if err != nil {
				return err
			}
			defer c.Close()
			_, _, err = Run(cmd.Context(), c, cmd.OutOrStdout(), text, opts, time.Now())
			return err
		},
	}
)

func init() {
	Cmd.Flags().BoolVarP(&opts.Save, "save", "s", false, "Save the parsed transaction")
	Cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "Category to save instead of the parsed one")
	Cmd.Flags().BoolVar(&opts.Private, "private", false, "Mark the saved transaction as private")
}

// Run parses text, prints the result and saves it when o.Save is set. The
// returned transaction is nil unless something was saved.
func Run(ctx context.Context, c *container.Container, out io.Writer, text string, o Options, now time.Time) (models.ParseResult, *models.Transaction, error) {
	if strings.TrimSpace(text) == "" {
		return models.ParseResult{}, nil, fmt.Errorf("no text to parse")
	}

	result, err := c.GetPipeline().Parse(ctx, text)
	if err != nil {
		return models.ParseResult{}, nil, err
	}
	if err := printResult(out, result); err != nil {
		return result, nil, err
	}
	if !o.Save {
		return result, nil, nil
	}

	in := repository.AddInput{
		Amount:       result.Amount,
		Date:         now,
		SourceText:   text,
		Source:       models.SourceShareExtension,
		IsPrivate:    o.Private,
		CategoryName: o.Category,
	}
	if result.Date != nil {
		in.Date = *result.Date
	}
	if result.Memo != nil {
		in.Memo = *result.Memo
	}
	if in.CategoryName == "" && result.Category != nil {
		in.CategoryName = *result.Category
	}
	if !result.HasAmount() {
		c.GetLogger().Debug("No amount found in shared text, saving without one",
			logging.Field{Key: logging.FieldParser, Value: result.ParserUsed})
	}

	tx, err := c.GetUseCases().AddTransaction(ctx, in)
	if err != nil {
		return result, nil, err
	}
	c.GetLogger().Info("Saved shared transaction",
		logging.Field{Key: logging.FieldTransactionID, Value: tx.ID.String()},
		logging.Field{Key: logging.FieldParser, Value: result.ParserUsed})
	fmt.Fprintf(out, "保存しました: %s\n", tx.ID)
	return result, &tx, nil
}

func printResult(out io.Writer, r models.ParseResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Parser:\t%s (confidence %.2f)\n", r.ParserUsed, r.Confidence)
	fmt.Fprintf(tw, "Amount:\t%s\n", currencyutils.FormatOptionalYen(r.Amount))
	date := "-"
	if r.Date != nil {
		date = dateutils.ToISODate(*r.Date)
	}
	fmt.Fprintf(tw, "Date:\t%s\n", date)
	fmt.Fprintf(tw, "Memo:\t%s\n", valueOrDash(r.Memo))
	fmt.Fprintf(tw, "Category:\t%s\n", valueOrDash(r.Category))
	return tw.Flush()
}

func valueOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return strings.ReplaceAll(*s, "\n", " ")
}
