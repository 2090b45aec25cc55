// =============================================================================
// Automeldung Exporter - Attachment Resolver
// =============================================================================
//
// Finds the AU file declared by a record and makes sure it is a mergeable
// PDF. Resolution order: the identifier taken as a direct path, otherwise a
// case-insensitive filename-prefix search in the configured AU folder.
// Existing PDFs beat images; within each class the newest modification time
// wins. PDF candidates are probed with ledongthuc/pdf before use so a corrupt
// scan upload cannot crash the merge later; an image candidate is converted
// to a single centered A4 page.
//
// =============================================================================

package attachment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/automeldung/automeldung/internal/imaging"
	ledong "github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no candidate matches the identifier.
var ErrNotFound = errors.New("attachment: no matching file found")

// Resolver locates and prepares attachment files.
type Resolver struct {
	// Dir is the configured AU files folder.
	Dir string
	// ConvertDir receives temporary image-to-PDF conversions.
	ConvertDir string
}

// Resolved describes a prepared attachment.
type Resolved struct {
	// Path is a mergeable PDF.
	Path string
	// Temporary is true when Path was produced by image conversion and must
	// be cleaned up after the merge.
	Temporary bool
}

// Resolve finds the attachment for the given identifier and returns a PDF
// path ready for merging. ErrNotFound when nothing matches.
func (r *Resolver) Resolve(fileID string) (Resolved, error) {
	if fileID == "" {
		return Resolved{}, ErrNotFound
	}

	var candidate string
	if info, err := os.Stat(fileID); err == nil && !info.IsDir() {
		// A direct path gets the same readability check as search candidates.
		if strings.EqualFold(filepath.Ext(fileID), ".pdf") && !probePDF(fileID) {
			return Resolved{}, fmt.Errorf("attachment: %s is not a readable PDF", fileID)
		}
		candidate = fileID
	} else {
		candidate = r.findByPrefix(fileID)
	}
	if candidate == "" {
		return Resolved{}, fmt.Errorf("%w (id %q in %s)", ErrNotFound, fileID, r.Dir)
	}

	if strings.EqualFold(filepath.Ext(candidate), ".pdf") {
		return Resolved{Path: candidate}, nil
	}
	if imaging.IsImagePath(candidate) {
		base := strings.TrimSuffix(filepath.Base(candidate), filepath.Ext(candidate))
		out := filepath.Join(r.ConvertDir, base+"_as_pdf.pdf")
		if err := imaging.ToPDF(candidate, out); err != nil {
			return Resolved{}, fmt.Errorf("attachment: convert %s: %w", candidate, err)
		}
		return Resolved{Path: out, Temporary: true}, nil
	}
	return Resolved{}, fmt.Errorf("%w (id %q matched unsupported file %s)", ErrNotFound, fileID, candidate)
}

// findByPrefix searches the AU folder for files whose name starts with the
// identifier, case-insensitively. PDFs that fail the readability probe are
// dropped from the ranking.
func (r *Resolver) findByPrefix(fileID string) string {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		logrus.Warnf("attachment: cannot read AU folder %s: %v", r.Dir, err)
		return ""
	}
	prefix := strings.ToLower(fileID)

	type candidate struct {
		path  string
		isPDF bool
		mtime int64
	}
	var matches []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			continue
		}
		path := filepath.Join(r.Dir, e.Name())
		isPDF := strings.EqualFold(filepath.Ext(e.Name()), ".pdf")
		if isPDF && !probePDF(path) {
			logrus.Warnf("attachment: %s matches %q but is not a readable PDF, skipping", path, fileID)
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		matches = append(matches, candidate{path: path, isPDF: isPDF, mtime: info.ModTime().UnixNano()})
	}
	if len(matches) == 0 {
		return ""
	}
	// PDFs first, then newest.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].isPDF != matches[j].isPDF {
			return matches[i].isPDF
		}
		return matches[i].mtime > matches[j].mtime
	})
	return matches[0].path
}

// probePDF opens the file with the read-only PDF library and checks it has at
// least one page.
func probePDF(path string) bool {
	f, reader, err := ledong.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return reader.NumPage() > 0
}
