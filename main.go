// =============================================================================
// Automeldung Exporter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Automeldung Exporter CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   automeldung export        - Process the leave report into PDF documents
//   automeldung fields <pdf>  - List the form fields of a PDF template
//   automeldung version       - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//
// =============================================================================

package main

import (
	"github.com/automeldung/automeldung/cmd"
)

// main simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
