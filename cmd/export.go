// =============================================================================
// Automeldung Exporter - Export Command
// =============================================================================
//
// Defines the 'export' command, which runs the whole pipeline for the
// configured leave report.
//
// COMMAND USAGE:
//   automeldung export [flags]
//
// FLAGS:
//   --limit  : Process only the first N report rows (overrides limit_rows)
//   --date   : Override the reporting date printed on the forms (dd.mm.yyyy)
//
// PROCESSING PIPELINE:
//   1. Load the configuration and the contact directory
//   2. Read the leave report spreadsheet
//   3. For each row (concurrently):
//      a. Validate against the contact directory
//      b. Classify (with / without attachment)
//      c. Fill the matching form template
//      d. Resolve and merge the AU file and resumption form where required
//      e. Flatten and write the final document
//   4. Clean up intermediates, write the error log, print a summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/automeldung/automeldung/internal/config"
	"github.com/automeldung/automeldung/internal/exporter"
	"github.com/spf13/cobra"
)

// limitRows overrides the configured row limit when positive.
var limitRows int

// creationDate overrides the configured reporting date when set.
var creationDate string

// exportCmd represents the 'export' command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Process the leave report and produce the PDF documents",
	Long: `The export command reads the configured leave report spreadsheet, validates
each row against the contact directory and produces one flattened PDF
document per valid record in the export directory.

Rows are processed independently; an error in one row is logged and recorded
in the error log, and processing continues for the remaining rows. Rows left
completely blank are skipped silently.

Interrupting the run (Ctrl-C) stops picking up new rows; records that already
started assembling are finished or discarded, never left half-written.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport()
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().IntVar(
		&limitRows,
		"limit",
		0,
		"Process only the first N report rows (0 = all)",
	)
	exportCmd.Flags().StringVar(
		&creationDate,
		"date",
		"",
		"Override the reporting date printed on the forms (dd.mm.yyyy)",
	)
}

// runExport loads the configuration, runs the batch and prints the summary.
func runExport() error {
	fmt.Println("=== Automeldung Exporter ===")
	fmt.Println("Loading configuration...")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if limitRows > 0 {
		cfg.LimitRows = limitRows
	}
	if creationDate != "" {
		cfg.CreationDate = creationDate
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	exp, err := exporter.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize exporter: %w", err)
	}

	// Ctrl-C stops feeding new rows; in-flight records finish cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Processing records...")
	summary, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total records:   %d\n", summary.Total)
	fmt.Printf("Produced:        %d\n", summary.Produced)
	fmt.Printf("Skipped:         %d\n", summary.Skipped)
	fmt.Printf("Errors:          %d\n", summary.Errors)
	fmt.Printf("Time elapsed:    %s\n", summary.Elapsed)

	if summary.ErrorLog != "" {
		fmt.Printf("\nErrors have been logged to %s\n", summary.ErrorLog)
	}
	return nil
}
