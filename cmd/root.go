// =============================================================================
// Automeldung Exporter - Root Command
// =============================================================================
//
// Defines the root command for the Cobra CLI. All subcommands ('export',
// 'fields', 'version') attach here.
//
// COBRA CLI STRUCTURE:
//   rootCmd (automeldung)
//   ├── exportCmd (automeldung export)
//   ├── fieldsCmd (automeldung fields)
//   └── versionCmd (automeldung version)
//
// The root command owns the global flags (--config, --verbose) and the
// logging setup shared by the subcommands.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/automeldung/automeldung/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging regardless of the configured level.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "automeldung",
	Short: "Automeldung Exporter - Assemble leave reports into submission-ready PDF documents",
	Long: `Automeldung Exporter reads a leave report spreadsheet, validates each row
against the contact directory, fills the matching PDF form template and
produces one flattened, submission-ready document per person.

Records with a sickness certificate (AU) get the certificate file and, for
concluded leave, the resumption confirmation merged into a single PDF.

Example Usage:
  automeldung export                     # Process the configured leave report
  automeldung export --config ./my.yaml  # Use a custom configuration file
  automeldung fields template.pdf        # Inspect a template's form fields`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (default is config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// setupLogging configures logrus from the loaded configuration. The --verbose
// flag wins over the configured level; when a log file is set, output goes to
// both stderr and the file.
func setupLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("log_file: %w", err)
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return nil
}
