// =============================================================================
// Automeldung Exporter - Assembly Orchestrator
// =============================================================================
//
// Drives the whole pipeline for a batch: read the leave report, then per
// record classify -> fill -> (merge) -> flatten -> cleanup. Per-record
// failures are caught here, logged as one line, and never abort the batch;
// only setup failures that would hit every record (unreadable report,
// missing contact directory) are fatal.
//
// Records are independent, so the batch runs on a bounded worker pool.
// Intermediate files are named deterministically from record identity and
// date, which keeps concurrent records from ever colliding; final documents
// are renamed into place only after flattening completes, so a file without
// the final name is never a finished report.
//
// =============================================================================

package exporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/automeldung/automeldung/internal/attachment"
	"github.com/automeldung/automeldung/internal/config"
	"github.com/automeldung/automeldung/internal/contacts"
	"github.com/automeldung/automeldung/internal/meldung"
	"github.com/automeldung/automeldung/internal/xlsxreader"
	"github.com/automeldung/automeldung/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Status is the terminal state of one record's assembly.
type Status int

const (
	StatusProduced Status = iota
	StatusSkippedEmpty
	StatusSkippedNotSelected
	StatusValidationError
	StatusUnclassifiable
	StatusFailed
)

// Result reports one record's outcome.
type Result struct {
	Row        int
	Nachname   string
	Status     Status
	OutputFile string
	Message    string
	Err        error
}

// Summary aggregates a batch run.
type Summary struct {
	Total    int
	Produced int
	Skipped  int
	Errors   int
	ErrorLog string
	Elapsed  time.Duration
	Results  []Result
}

// Exporter owns one batch run's collaborators. Construct with New, run once.
type Exporter struct {
	cfg        *config.Config
	validator  *meldung.Validator
	normalizer *meldung.Normalizer
	resolver   *attachment.Resolver
	runID      string
	now        func() time.Time
}

// New loads the contact directory and wires up the pipeline components.
func New(cfg *config.Config) (*Exporter, error) {
	dir, err := contacts.Load(cfg.ContactsPath, cfg.ContactsSheet)
	if err != nil {
		return nil, err
	}
	return NewWithDirectory(cfg, dir), nil
}

// NewWithDirectory builds an Exporter over an already-loaded directory.
func NewWithDirectory(cfg *config.Config, dir meldung.Directory) *Exporter {
	return &Exporter{
		cfg:        cfg,
		validator:  meldung.NewValidator(dir),
		normalizer: meldung.NewNormalizer(dir, cfg.CreationTime()),
		resolver: &attachment.Resolver{
			Dir:        cfg.AUFilesDir,
			ConvertDir: cfg.ExportDir,
		},
		runID: uuid.NewString(),
		now:   time.Now,
	}
}

// Run processes the configured leave report. ctx is polled between records;
// a record that already started assembling finishes (a half-written document
// is either completed or discarded, never kept).
func (e *Exporter) Run(ctx context.Context) (*Summary, error) {
	start := e.now()
	log := logrus.WithField("run", e.runID)

	if err := utils.EnsureDirectories(e.cfg.ExportDir); err != nil {
		return nil, err
	}

	rows, err := xlsxreader.ReadTable(e.cfg.ReportPath, e.cfg.ReportSheet, e.cfg.LimitRows)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	log.Infof("Loaded %d row(s) from %s", len(rows), e.cfg.ReportPath)

	// Bounded worker pool; each record only touches its own deterministic
	// intermediate names, so records never share mutable state.
	type job struct {
		idx int
		row xlsxreader.Row
	}
	jobs := make(chan job)
	results := make(chan Result, len(rows))

	var wg sync.WaitGroup
	for w := 0; w < e.cfg.MaxConcurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- e.processRow(j.idx, meldung.RawRow(j.row))
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, row := range rows {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{idx: i + 2, row: row}: // +2: 1-based plus header row
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{}
	var errorLines []string
	for res := range results {
		summary.Total++
		summary.Results = append(summary.Results, res)
		switch res.Status {
		case StatusProduced:
			summary.Produced++
			log.Infof("  ✓ %s -> %s", res.Nachname, res.OutputFile)
		case StatusSkippedEmpty:
			summary.Skipped++
			// An all-blank row is a skip, not an event worth log noise.
		case StatusSkippedNotSelected:
			summary.Skipped++
			log.Debugf("  - %s: not selected", res.Nachname)
		case StatusValidationError, StatusUnclassifiable:
			summary.Errors++
			log.Errorf("  ✗ row %d: %s", res.Row, res.Message)
			errorLines = append(errorLines, fmt.Sprintf("row %d: %s", res.Row, res.Message))
		case StatusFailed:
			summary.Errors++
			log.Errorf("  ✗ row %d (%s): %v", res.Row, res.Nachname, res.Err)
			errorLines = append(errorLines, fmt.Sprintf("row %d (%s): %v", res.Row, res.Nachname, res.Err))
		}
	}

	// Sweep stray intermediates, also from interrupted earlier runs.
	utils.SweepSuffix(e.cfg.ExportDir, "_interactive.pdf")
	utils.SweepSuffix(e.cfg.ExportDir, ".partial")

	if path, err := utils.WriteErrorLog(e.cfg.ExportDir, e.runID, errorLines); err != nil {
		log.Warnf("error log: %v", err)
	} else {
		summary.ErrorLog = path
	}

	summary.Elapsed = e.now().Sub(start)
	if err := ctx.Err(); err != nil {
		log.Warnf("run cancelled after %d record(s)", summary.Total)
	}
	return summary, nil
}

// processRow takes one raw row through validation, normalization and
// assembly. All failure paths are converted into a Result here.
func (e *Exporter) processRow(rowNum int, row meldung.RawRow) Result {
	res := Result{Row: rowNum, Nachname: row.Get("nachname")}

	// The select column gates processing; unselected rows are skipped quietly.
	if row.Has("select") && !row.Bool("select") {
		res.Status = StatusSkippedNotSelected
		return res
	}

	v := e.validator.Validate(row)
	switch v.Outcome {
	case meldung.OutcomeEmpty:
		res.Status = StatusSkippedEmpty
		return res
	case meldung.OutcomeInvalid:
		res.Status = StatusValidationError
		res.Message = v.Message()
		return res
	}

	rec, err := e.normalizer.Normalize(row)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	switch rec.Classify() {
	case meldung.ClassOhneAttachment:
		res.OutputFile, res.Err = e.assembleOhne(rec)
	case meldung.ClassMitAttachment:
		res.OutputFile, res.Err = e.assembleMit(rec)
	default:
		res.Status = StatusUnclassifiable
		res.Message = fmt.Sprintf("%s: %d Tage ohne AU - manuelle Prüfung erforderlich",
			rec.Nachname, rec.TotalDays)
		return res
	}
	if res.Err != nil {
		res.Status = StatusFailed
		return res
	}
	res.Status = StatusProduced
	return res
}
