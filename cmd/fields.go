// =============================================================================
// Automeldung Exporter - Fields Command
// =============================================================================
//
// Defines the 'fields' command, which lists the interactive form fields of a
// PDF template. Useful for checking that a new or edited template still
// carries the field names the exporter fills.
//
// COMMAND USAGE:
//   automeldung fields <template.pdf>
//
// OUTPUT:
//   One line per terminal field: name, type, current value and, for
//   checkboxes, the on-state name.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/automeldung/automeldung/internal/pdf"
	"github.com/spf13/cobra"
)

// fieldsCmd represents the 'fields' command.
var fieldsCmd = &cobra.Command{
	Use:   "fields <template.pdf>",
	Short: "List the interactive form fields of a PDF template",
	Long: `The fields command reads a PDF form template and prints its terminal
interactive fields in name order. Use it to verify that a template exposes
the field names the exporter expects before wiring it into the configuration.`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runFields(args[0])
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}

// runFields prints the field inventory of the template at path.
func runFields(path string) error {
	doc, err := pdf.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	fields, err := doc.FormFields()
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d page(s), %d field(s)\n\n", path, doc.PageCount(), len(fields))
	for _, f := range fields {
		line := fmt.Sprintf("  %-28s %-4s", f.Name, f.Type)
		if f.Value != "" {
			line += fmt.Sprintf("  value=%q", f.Value)
		}
		if f.OnState != "" {
			line += fmt.Sprintf("  on=/%s", f.OnState)
		}
		fmt.Println(line)
	}
	return nil
}
