// =============================================================================
// Automeldung Exporter - Configuration Module
// =============================================================================
//
// Loads the YAML configuration that wires the whole pipeline together: where
// the leave report and contact directory spreadsheets live, which PDF
// templates to fill, where AU files are searched and where finished documents
// land. The loaded Config value is handed to the exporter at construction and
// threaded down from there - there is deliberately no ambient global state.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete runtime configuration.
type Config struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// ReportPath is the leave report spreadsheet (.xlsx or legacy .xls).
	ReportPath string `yaml:"report_path"`

	// ReportSheet selects the worksheet; empty means the first sheet.
	ReportSheet string `yaml:"report_sheet"`

	// ContactsPath is the contact directory spreadsheet with the columns
	// nachname, vorname, persnr, vertrag_im.
	ContactsPath string `yaml:"contacts_path"`

	// ContactsSheet selects the worksheet; empty means the first sheet.
	ContactsSheet string `yaml:"contacts_sheet"`

	// =========================================================================
	// TEMPLATE SETTINGS
	// =========================================================================

	// TemplateOhneAU is the single-form template for short leave without an
	// attached certificate.
	TemplateOhneAU string `yaml:"template_ohne_au"`

	// TemplateMitAU is the main form template for leave with a certificate.
	TemplateMitAU string `yaml:"template_mit_au"`

	// TemplateGesundmeldung is the resumption-confirmation template appended
	// to non-interim certificate reports.
	TemplateGesundmeldung string `yaml:"template_gesundmeldung"`

	// =========================================================================
	// ATTACHMENT SETTINGS
	// =========================================================================

	// AUFilesDir is searched for attachment files by case-insensitive
	// filename prefix when au_file_id is not a direct path.
	AUFilesDir string `yaml:"au_files_dir"`

	// AttachmentPolicy decides what happens when a declared attachment file
	// cannot be resolved: "skip" proceeds without the attachment page,
	// "fail" fails the record.
	AttachmentPolicy string `yaml:"attachment_policy"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// ExportDir receives the final flattened documents. Intermediates are
	// written here too and always cleaned up.
	ExportDir string `yaml:"export_dir"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// CreationDate overrides the reporting date printed on the forms
	// (dd.mm.yyyy). Empty means today.
	CreationDate string `yaml:"creation_date"`

	// LimitRows caps how many report rows are read; 0 means no limit.
	LimitRows int `yaml:"limit_rows"`

	// MaxConcurrency bounds how many records are assembled in parallel.
	MaxConcurrency int `yaml:"max_concurrency"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile receives a copy of the log output when set.
	LogFile string `yaml:"log_file"`

	// LogLevel: "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`
}

// Attachment policies.
const (
	AttachmentSkip = "skip"
	AttachmentFail = "fail"
)

// Load reads, defaults and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ExportDir == "" {
		cfg.ExportDir = "./export"
	}
	if cfg.AUFilesDir == "" {
		cfg.AUFilesDir = "./au_files"
	}
	if cfg.AttachmentPolicy == "" {
		cfg.AttachmentPolicy = AttachmentSkip
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validate(cfg *Config) error {
	required := [][2]string{
		{"report_path", cfg.ReportPath},
		{"contacts_path", cfg.ContactsPath},
		{"template_ohne_au", cfg.TemplateOhneAU},
		{"template_mit_au", cfg.TemplateMitAU},
		{"template_gesundmeldung", cfg.TemplateGesundmeldung},
	}
	for _, r := range required {
		if r[1] == "" {
			return fmt.Errorf("%s must be set", r[0])
		}
	}
	if cfg.AttachmentPolicy != AttachmentSkip && cfg.AttachmentPolicy != AttachmentFail {
		return fmt.Errorf("attachment_policy must be %q or %q", AttachmentSkip, AttachmentFail)
	}
	if cfg.CreationDate != "" {
		if _, err := time.Parse("02.01.2006", cfg.CreationDate); err != nil {
			return fmt.Errorf("creation_date: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.ExportDir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory %s: %w", cfg.ExportDir, err)
	}
	return nil
}

// CreationTime returns the parsed creation date override, or the zero time
// when none is configured.
func (cfg *Config) CreationTime() time.Time {
	if cfg.CreationDate == "" {
		return time.Time{}
	}
	t, err := time.Parse("02.01.2006", cfg.CreationDate)
	if err != nil {
		return time.Time{}
	}
	return t
}
