package search

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/b-vitamins/bibliography/internal/biblio"
	"github.com/b-vitamins/bibliography/internal/store"
)

// LocateEngine finds records by their attachment path.
type LocateEngine struct {
	store store.Store
}

// NewLocate creates a locate engine over the given index store.
func NewLocate(s store.Store) *LocateEngine {
	return &LocateEngine{store: s}
}

// Locate returns records whose attachment path matches the pattern. With
// glob, * and ? glob syntax is used; otherwise plain substring matching.
// With basenameOnly, the pattern is tested only against the final path
// segment, case-insensitively.
func (l *LocateEngine) Locate(pattern string, glob, basenameOnly bool) ([]biblio.Record, error) {
	if basenameOnly {
		pattern = filepath.Base(pattern)
	}

	records, err := l.store.Locate(pattern, glob)
	if err != nil {
		return nil, err
	}
	if !basenameOnly {
		return records, nil
	}

	// The SQL match ran against the whole field value; narrow to entries
	// whose attachment basename actually contains the pattern.
	needle := strings.ToLower(pattern)
	var filtered []biblio.Record
	for _, rec := range records {
		path := rec.AttachmentPath()
		if path == "" {
			continue
		}
		if strings.Contains(strings.ToLower(filepath.Base(path)), needle) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// ByExtension returns records whose attachment has the given extension.
// The leading dot is optional.
func (l *LocateEngine) ByExtension(extension string) ([]biblio.Record, error) {
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return l.store.Locate("*"+extension, true)
}

// InDirectory returns records whose attachment lives under the given
// directory. The directory is resolved to an absolute path and matched as
// a prefix of the attachment path.
func (l *LocateEngine) InDirectory(directory string) ([]biblio.Record, error) {
	abs, err := filepath.Abs(directory)
	if err != nil {
		return nil, err
	}
	records, err := l.store.Locate(abs, false)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimSuffix(abs, string(filepath.Separator)) + string(filepath.Separator)
	var filtered []biblio.Record
	for _, rec := range records {
		if strings.HasPrefix(rec.AttachmentPath(), prefix) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// VerifyFiles returns the indexed records whose attachment path does not
// exist on disk. Records without an attachment are skipped.
func (l *LocateEngine) VerifyFiles() ([]biblio.Record, error) {
	records, err := l.store.All()
	if err != nil {
		return nil, err
	}
	var missing []biblio.Record
	for _, rec := range records {
		path := rec.AttachmentPath()
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, rec)
		}
	}
	return missing, nil
}
