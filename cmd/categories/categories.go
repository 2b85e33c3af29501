// Package categories lists the preset categories.
package categories

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/validation"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const formatYAML = "yaml"

var (
	format string

	// Cmd represents the categories command
	Cmd = &cobra.Command{
		Use:   "categories",
		Short: "List the preset categories",
		Long: `List the preset categories in display order. Transactions may use any
category name; the presets are only suggestions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.OutOrStdout(), format)
		},
	}
)

func init() {
	Cmd.Flags().StringVar(&format, "format", validation.FormatTable, "Output format: table, json or yaml")
}

// Run prints the preset categories in format.
func Run(out io.Writer, format string) error {
	categories := models.PresetCategories()
	switch format {
	case validation.FormatTable, "":
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ORDER\tNAME\tICON")
		for _, c := range categories {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", c.DisplayOrder, c.Name, c.IconName)
		}
		return tw.Flush()
	case validation.FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(categories)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string][]models.Category{"categories": categories}); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", format)
	}
}
