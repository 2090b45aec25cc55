// =============================================================================
// Automeldung Exporter - File Manager Utility
// =============================================================================
//
// File housekeeping for the pipeline: directory setup, best-effort cleanup of
// intermediate documents and the per-run error log. Cleanup is deliberately
// tolerant - a file that cannot be deleted must never fail an otherwise
// successful record - but every such failure is logged as a warning, not
// swallowed.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnsureDirectories creates every listed directory if missing.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// RemoveFiles deletes the given files if they exist. Failures are warnings;
// missing files are fine.
func RemoveFiles(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("cleanup: could not remove %s: %v", p, err)
		}
	}
}

// SweepSuffix removes leftover files in dir whose names end in suffix.
// Used to clear stray intermediates from interrupted earlier runs.
func SweepSuffix(dir, suffix string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logrus.Warnf("cleanup: could not scan %s: %v", dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		RemoveFiles(filepath.Join(dir, e.Name()))
	}
}

// WriteErrorLog writes the collected per-record error lines into the export
// directory under a run-scoped name. Returns the written path.
func WriteErrorLog(dir, runID string, lines []string) (string, error) {
	if len(lines) == 0 {
		return "", nil
	}
	path := filepath.Join(dir, fmt.Sprintf("errors_%s.log", runID))
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write error log: %w", err)
	}
	return path, nil
}
