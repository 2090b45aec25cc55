// =============================================================================
// Automeldung Exporter - Per-Record Assembly
// =============================================================================
//
// The fill -> (merge) -> flatten -> cleanup sequence for a single record.
// Naming convention (all under the export directory):
//
//   <Prefix>_<nachname>_<YYYY-MM-DD>.pdf                  final, flattened
//   <Prefix>_<nachname>_<YYYY-MM-DD>_interactive.pdf      filled, still interactive
//   <Prefix>_<nachname>_<YYYY-MM-DD>_merged_interactive.pdf  merged, still interactive
//
// Prefix is "Meldung" for records without attachment, "Krankmeldung" for a
// concluded leave with attachment and "Zwischenmeldung" for an interim
// report. Everything carrying an _interactive suffix (and the .partial file
// the flattener writes before the atomic rename) is deleted afterwards, on
// success and on failure alike.
//
// =============================================================================

package exporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/automeldung/automeldung/internal/attachment"
	"github.com/automeldung/automeldung/internal/config"
	"github.com/automeldung/automeldung/internal/meldung"
	"github.com/automeldung/automeldung/internal/pdf"
	"github.com/automeldung/automeldung/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Output name prefixes.
const (
	prefixMeldung         = "Meldung"
	prefixKrankmeldung    = "Krankmeldung"
	prefixZwischenmeldung = "Zwischenmeldung"
)

// assembleOhne produces the single-template document for short leave without
// an attachment.
func (e *Exporter) assembleOhne(rec *meldung.Record) (string, error) {
	tag := rec.DateTag()
	interactive := e.exportName(prefixMeldung, rec.Nachname, tag, "_interactive.pdf")
	final := e.exportName(prefixMeldung, rec.Nachname, tag, ".pdf")
	defer utils.RemoveFiles(interactive)

	fields := pdf.FieldMap{}.
		Text("nachname_vorname", rec.FullName()).
		Text("pnr", rec.PersNr).
		Text("von", meldung.FormatDate(rec.Start)).
		Text("bis", meldung.FormatDate(rec.End)).
		Text("wiederaufnahmedatum", meldung.FormatDate(rec.Resumption)).
		Text("zuletzt", meldung.FormatDate(rec.LastWorked)).
		Text("datum", meldung.FormatDate(rec.CreationDate))

	if err := e.fillTemplate(e.cfg.TemplateOhneAU, fields, interactive); err != nil {
		return "", err
	}
	if err := e.flattenTo(interactive, final); err != nil {
		return "", err
	}
	return final, nil
}

// assembleMit produces the multi-part document for leave with an attachment:
// main form, the resolved AU file (if any) and, unless this is an interim
// report, the resumption form - merged and flattened into one artifact.
func (e *Exporter) assembleMit(rec *meldung.Record) (string, error) {
	tag := rec.DateTag()
	prefix := prefixKrankmeldung
	if rec.IsInterim(e.now()) {
		prefix = prefixZwischenmeldung
	}

	krankInteractive := e.exportName(prefix, rec.Nachname, tag, "_interactive.pdf")
	mergedInteractive := e.exportName(prefix, rec.Nachname, tag, "_merged_interactive.pdf")
	final := e.exportName(prefix, rec.Nachname, tag, ".pdf")

	cleanup := []string{krankInteractive, mergedInteractive}
	defer func() { utils.RemoveFiles(cleanup...) }()

	vonOhne, bisOhne := rec.PreAttachmentRange()
	fields := pdf.FieldMap{}.
		Text("nachname_vorname", rec.FullName()).
		Text("pnr", rec.PersNr).
		Text("von_ohne", vonOhne).
		Text("bis_ohne", bisOhne).
		Text("von_mit", meldung.FormatDate(rec.AttachmentStart)).
		Text("bis_mit", meldung.FormatDate(rec.AttachmentEnd)).
		Check("AU_checkbox", rec.HasAttachmentDeclared).
		Check("eAU_checkbox", rec.HasElectronicAttachment).
		Text("zuletzt", meldung.FormatDate(rec.LastWorked)).
		Text("datum", meldung.FormatDate(rec.CreationDate))

	if err := e.fillTemplate(e.cfg.TemplateMitAU, fields, krankInteractive); err != nil {
		return "", err
	}
	mergeList := []string{krankInteractive}

	// Attachment page.
	resolved, err := e.resolver.Resolve(rec.AttachmentFileID)
	switch {
	case err == nil:
		if resolved.Temporary {
			cleanup = append(cleanup, resolved.Path)
		}
		mergeList = append(mergeList, resolved.Path)
	case errors.Is(err, attachment.ErrNotFound):
		if e.cfg.AttachmentPolicy == config.AttachmentFail {
			return "", fmt.Errorf("attachment required but unresolved: %w", err)
		}
		logrus.Warnf("%s: %v - proceeding without attachment page", rec.Nachname, err)
	default:
		return "", err
	}

	// Resumption form, suppressed for interim reports.
	if !rec.IsInterim(e.now()) {
		gesundInteractive := e.exportName("Gesundmeldung", rec.Nachname, tag, "_interactive.pdf")
		cleanup = append(cleanup, gesundInteractive)
		gesund := pdf.FieldMap{}.
			Text("nachname_vorname", rec.FullName()).
			Text("pnr", rec.PersNr).
			Text("von", meldung.FormatDate(rec.Start)).
			Text("bis", meldung.FormatDate(rec.End)).
			Text("wiederaufnahmedatum", meldung.FormatDate(rec.Resumption)).
			Text("datum", meldung.FormatDate(rec.CreationDate))
		if err := e.fillTemplate(e.cfg.TemplateGesundmeldung, gesund, gesundInteractive); err != nil {
			return "", err
		}
		mergeList = append(mergeList, gesundInteractive)
	}

	merged, err := pdf.MergeFiles(mergeList)
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}
	if err := merged.WriteFile(mergedInteractive); err != nil {
		return "", err
	}
	if err := e.flattenTo(mergedInteractive, final); err != nil {
		return "", err
	}
	return final, nil
}

// fillTemplate loads a template, binds the field map and writes the filled
// interactive document.
func (e *Exporter) fillTemplate(templatePath string, fields pdf.FieldMap, outPath string) error {
	doc, err := pdf.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}
	if err := doc.FillForm(fields); err != nil {
		return fmt.Errorf("fill %s: %w", filepath.Base(templatePath), err)
	}
	return doc.WriteFile(outPath)
}

// flattenTo flattens the interactive document at inPath into final form at
// outPath. The flattened file is written next to the final name and renamed
// into place, so a crash mid-write never leaves a plausible-looking final
// document behind.
func (e *Exporter) flattenTo(inPath, outPath string) error {
	doc, err := pdf.ReadFile(inPath)
	if err != nil {
		return err
	}
	if err := doc.Flatten(); err != nil {
		return fmt.Errorf("flatten: %w", err)
	}
	partial := outPath + ".partial"
	if err := doc.WriteFile(partial); err != nil {
		utils.RemoveFiles(partial)
		return err
	}
	if err := os.Rename(partial, outPath); err != nil {
		utils.RemoveFiles(partial)
		return fmt.Errorf("finalize %s: %w", outPath, err)
	}
	return nil
}

// exportName builds the deterministic per-record file name.
func (e *Exporter) exportName(prefix, nachname, tag, suffix string) string {
	return filepath.Join(e.cfg.ExportDir, fmt.Sprintf("%s_%s_%s%s", prefix, nachname, tag, suffix))
}
