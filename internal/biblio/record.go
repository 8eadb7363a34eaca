// Package biblio defines the bibliographic record value type shared by the
// file-backed repository and the search index.
package biblio

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Record is a single bibliographic entry. Key is globally unique within a
// repository. Fields maps field names to values; an absent key means the
// field is unset.
type Record struct {
	Key        string
	Type       string
	Fields     map[string]string
	SourceFile string
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Key: r.Key, Type: r.Type, Fields: fields, SourceFile: r.SourceFile}
}

// Apply returns a new record with the given field changes applied to a clone
// of r. A nil value deletes the field; the original record is not mutated.
func (r Record) Apply(changes map[string]*string) Record {
	out := r.Clone()
	for field, value := range changes {
		if value == nil {
			delete(out.Fields, field)
		} else {
			out.Fields[field] = *value
		}
	}
	return out
}

// Field returns the value of a field, or "" if unset.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// Venue returns the publication venue: the journal field, falling back to
// booktitle for conference entries.
func (r Record) Venue() string {
	if j := r.Fields["journal"]; j != "" {
		return j
	}
	return r.Fields["booktitle"]
}

// AttachmentPath returns the filesystem path of the record's attached
// document, extracted from the file field, or "" if there is none.
func (r Record) AttachmentPath() string {
	return ExtractAttachmentPath(r.Fields["file"])
}

// SetAttachmentPath stores path in the file field using the
// {:<path>:<kind>} mini-format.
func (r *Record) SetAttachmentPath(path, kind string) {
	if kind == "" {
		kind = "pdf"
	}
	r.Fields["file"] = fmt.Sprintf(":%s:%s", path, kind)
}

// ExtractAttachmentPath parses an attachment field value. Three encodings
// are accepted: ":<path>:<kind>", "<path>:<kind>", and a bare path. Braces
// around the whole value are tolerated. Unparseable or empty input yields "".
func ExtractAttachmentPath(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ":")
	if len(parts) >= 2 {
		if parts[0] == "" {
			return parts[1]
		}
		return parts[0]
	}
	return s
}

// BibTeX renders the record as a single @type{key, ...} block with fields in
// sorted order and values brace-wrapped.
func (r Record) BibTeX() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", r.Type, r.Key)

	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		fmt.Fprintf(&b, "  %s = {%s}", name, r.Fields[name])
		if i < len(names)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteByte('}')
	return b.String()
}

var nonAlpha = regexp.MustCompile(`[^a-zA-Z]`)
var titleWord = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

// GenerateKey derives a citation key from author, year, and title, e.g.
// "doe2023quantum". Used when the caller does not supply a key.
func GenerateKey(author, year, title string) string {
	var last string
	if i := strings.Index(author, ","); i >= 0 {
		last = author[:i]
	} else if parts := strings.Fields(author); len(parts) > 0 {
		last = parts[len(parts)-1]
	}
	authorKey := strings.ToLower(nonAlpha.ReplaceAllString(last, ""))

	titleKey := "unknown"
	if w := titleWord.FindString(strings.ToLower(title)); w != "" {
		titleKey = w
	}
	return authorKey + year + titleKey
}
