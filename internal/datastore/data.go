package datastore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/codec"
	"github.com/starford/devspace/internal/integrity"
	"github.com/starford/devspace/internal/migrate"
	"github.com/starford/devspace/internal/models"
	"github.com/starford/devspace/internal/stats"
)

// Export returns a deep copy of the whole document.
func (s *Store) Export() *models.Document {
	var out *models.Document
	s.view(func(doc *models.Document) { out = doc.Clone() })
	return out
}

// ExportJSON returns the document as indented JSON, the export file format.
func (s *Store) ExportJSON() ([]byte, error) {
	return codec.EncodePretty(s.Export())
}

// ParseImport validates and decodes an exported document. All four
// collections must be present as arrays; a missing metadata block is
// synthesised. Pending migrations are applied to the result.
func (s *Store) ParseImport(data []byte) (*models.Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrImportFormat, err)
	}
	for _, key := range []string{Projects, Tasks, Schedules, Payments} {
		v, ok := raw[key]
		if !ok || !isArray(v) {
			return nil, fmt.Errorf("%w: %q must be an array", apperr.ErrImportFormat, key)
		}
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrImportFormat, err)
	}
	doc.EnsureMetadata(s.now())
	doc.Normalize()

	out, res := migrate.Run(&doc, s.migrations, s.logger)
	if res.Err != nil {
		s.logger.Warn("import: migration incomplete",
			slog.String("version", res.To),
			slog.String("error", res.Err.Error()))
	}
	return out, nil
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

// ImportData replaces the whole document with the decoded data. Nothing is
// changed when the data is malformed.
func (s *Store) ImportData(data []byte) error {
	doc, err := s.ParseImport(data)
	if err != nil {
		return err
	}
	s.mutate(func(cur *models.Document, _ time.Time) (Change, bool) {
		*cur = *doc
		return Change{Op: OpImported}, true
	})
	return nil
}

// Replace swaps in doc without stamping it, as when reloading a document
// changed on disk by another writer.
func (s *Store) Replace(doc *models.Document) {
	s.ReplaceUnless(doc, func() bool { return false })
}

// ReplaceUnless swaps in doc like Replace unless skip reports true. skip runs
// under the write lock, so no mutation lands between the check and the swap.
// It reports whether the document was replaced.
func (s *Store) ReplaceUnless(doc *models.Document, skip func() bool) bool {
	doc = doc.Clone()
	doc.Normalize()
	replaced := false
	s.write(false, func(cur *models.Document, _ time.Time) (Change, bool) {
		if skip() {
			return Change{}, false
		}
		*cur = *doc
		replaced = true
		return Change{Op: OpReloaded}, true
	})
	return replaced
}

// Reset discards all records and starts a fresh document.
func (s *Store) Reset() {
	s.mutate(func(cur *models.Document, now time.Time) (Change, bool) {
		*cur = *models.NewDocument(now)
		return Change{Op: OpReset}, true
	})
}

// Validate runs the integrity checks on the current document.
func (s *Store) Validate() integrity.Report {
	var r integrity.Report
	s.view(func(doc *models.Document) { r = integrity.Check(doc) })
	return r
}

// FixResult is returned by FixOrphanedRecords.
type FixResult struct {
	Fixed      int              `json:"fixed"`
	Validation integrity.Report `json:"validation"`
}

// FixOrphanedRecords detaches records pointing at missing projects and
// revalidates. A second call in a row fixes nothing.
func (s *Store) FixOrphanedRecords() FixResult {
	var res FixResult
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		res.Fixed = integrity.Fix(doc, now)
		res.Validation = integrity.Check(doc)
		return Change{Op: OpFixed}, res.Fixed > 0
	})
	return res
}

// Statistics aggregates the current document.
func (s *Store) Statistics() stats.Statistics {
	var st stats.Statistics
	now := s.now()
	s.view(func(doc *models.Document) { st = stats.Compute(doc, now) })
	return st
}

// MarkBackedUp records a successful backup taken at t. Like every other
// document mutation it stamps metadata.updatedAt.
func (s *Store) MarkBackedUp(t time.Time) {
	t = t.UTC().Truncate(time.Millisecond)
	s.mutate(func(doc *models.Document, _ time.Time) (Change, bool) {
		doc.Metadata.LastBackup = &t
		return Change{Op: OpBackedUp}, true
	})
}

// Now returns the store clock reading used for stamps.
func (s *Store) Now() time.Time { return s.now() }

// Compression reports whether persisted documents are compressed.
func (s *Store) Compression() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compress
}

// SetCompression changes the compression preference.
func (s *Store) SetCompression(on bool) {
	s.write(false, func(*models.Document, time.Time) (Change, bool) {
		if s.compress == on {
			return Change{}, false
		}
		s.compress = on
		return Change{Op: OpSettings}, true
	})
}

// ToggleCompression flips the compression preference and returns the new value.
func (s *Store) ToggleCompression() bool {
	var on bool
	s.write(false, func(*models.Document, time.Time) (Change, bool) {
		s.compress = !s.compress
		on = s.compress
		return Change{Op: OpSettings}, true
	})
	return on
}

// Info summarises the document and its encoded size.
type Info struct {
	AppVersion   string `json:"appVersion"`
	DataVersion  string `json:"dataVersion"`
	Projects     int    `json:"projects"`
	Tasks        int    `json:"tasks"`
	Schedules    int    `json:"schedules"`
	Payments     int    `json:"payments"`
	Compressed   bool   `json:"compressed"`
	EncodedBytes int    `json:"encodedBytes"`
	PlainBytes   int    `json:"plainBytes"`
}

// Info reports record counts and the size of the document in its plain
// and persisted forms.
func (s *Store) Info() (Info, error) {
	doc := s.Export()
	compress := s.Compression()

	plain, err := codec.Encode(doc, false)
	if err != nil {
		return Info{}, err
	}
	encoded := plain
	if compress {
		if encoded, err = codec.Encode(doc, true); err != nil {
			return Info{}, err
		}
	}
	return Info{
		AppVersion:   models.AppVersion,
		DataVersion:  doc.Metadata.Version,
		Projects:     len(doc.Projects),
		Tasks:        len(doc.Tasks),
		Schedules:    len(doc.Schedules),
		Payments:     len(doc.Payments),
		Compressed:   compress,
		EncodedBytes: len(encoded),
		PlainBytes:   len(plain),
	}, nil
}
