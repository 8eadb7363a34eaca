// Package bibtex parses and serializes BibTeX record files. It covers the
// @type{key, field = {value}, ...} subset used by the repository; parse and
// serialize round-trip to a semantically equivalent record set.
package bibtex

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/b-vitamins/bibliography/internal/biblio"
)

// Parse extracts all records from BibTeX source. sourceFile is recorded on
// each returned record. A malformed block fails the whole file.
func Parse(src []byte, sourceFile string) ([]biblio.Record, error) {
	p := &parser{src: src, line: 1}
	var records []biblio.Record

	for {
		if !p.seekEntry() {
			return records, nil
		}
		entryType := strings.ToLower(p.readIdentifier())
		if entryType == "" {
			return records, p.errf("expected entry type after '@'")
		}

		// @comment and @preamble blocks carry no records.
		if entryType == "comment" || entryType == "preamble" || entryType == "string" {
			if err := p.skipBlock(); err != nil {
				return records, err
			}
			continue
		}

		rec, err := p.readEntry(entryType, sourceFile)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// ParseFile reads and parses a single .bib file.
func ParseFile(path string) ([]biblio.Record, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := Parse(src, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Serialize renders records as a BibTeX file: fields sorted, values
// brace-wrapped, one blank line between records.
func Serialize(records []biblio.Record) []byte {
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "@%s{%s,\n", rec.Type, rec.Key)

		names := make([]string, 0, len(rec.Fields))
		for name := range rec.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for j, name := range names {
			fmt.Fprintf(&b, "  %s = {%s}", name, rec.Fields[name])
			if j < len(names)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString("}\n")
	}
	return []byte(b.String())
}

type parser struct {
	src  []byte
	pos  int
	line int
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.line, fmt.Sprintf(format, args...))
}

// seekEntry advances to the next '@' and consumes it. Everything between
// entries is treated as commentary, as BibTeX does.
func (p *parser) seekEntry() bool {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\n' {
			p.line++
		}
		p.pos++
		if c == '@' {
			return true
		}
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\n' {
			p.line++
		} else if c != ' ' && c != '\t' && c != '\r' {
			return
		}
		p.pos++
	}
}

func isIdent(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

func (p *parser) readIdentifier() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isIdent(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return p.errf("expected %q", string(c))
	}
	p.pos++
	return nil
}

// skipBlock consumes a balanced {...} block without interpreting it.
func (p *parser) skipBlock() error {
	if err := p.expect('{'); err != nil {
		return err
	}
	depth := 1
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
		case '\n':
			p.line++
		}
		p.pos++
		if depth == 0 {
			return nil
		}
	}
	return p.errf("unterminated block")
}

func (p *parser) readEntry(entryType, sourceFile string) (biblio.Record, error) {
	var rec biblio.Record
	if err := p.expect('{'); err != nil {
		return rec, err
	}

	// Citation key runs to the first comma.
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != '}' && p.src[p.pos] != '\n' {
		p.pos++
	}
	key := strings.TrimSpace(string(p.src[start:p.pos]))
	if key == "" {
		return rec, p.errf("entry has no citation key")
	}

	rec = biblio.Record{
		Key:        key,
		Type:       entryType,
		Fields:     make(map[string]string),
		SourceFile: sourceFile,
	}

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return rec, p.errf("unterminated entry %q", key)
		}
		switch p.src[p.pos] {
		case '}':
			p.pos++
			return rec, nil
		case ',':
			p.pos++
			continue
		}

		name := strings.ToLower(p.readIdentifier())
		if name == "" {
			return rec, p.errf("entry %q: expected field name", key)
		}
		if err := p.expect('='); err != nil {
			return rec, fmt.Errorf("entry %q: field %q: %w", key, name, err)
		}
		value, err := p.readValue()
		if err != nil {
			return rec, fmt.Errorf("entry %q: field %q: %w", key, name, err)
		}
		rec.Fields[name] = value
	}
}

// readValue reads a brace-delimited, quoted, or bare field value. The
// delimiters are consumed and not part of the returned value.
func (p *parser) readValue() (string, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return "", p.errf("expected field value")
	}

	switch p.src[p.pos] {
	case '{':
		p.pos++
		start := p.pos
		depth := 1
		for p.pos < len(p.src) {
			switch p.src[p.pos] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					v := string(p.src[start:p.pos])
					p.pos++
					return v, nil
				}
			case '\n':
				p.line++
			}
			p.pos++
		}
		return "", p.errf("unterminated braced value")

	case '"':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) {
			if p.src[p.pos] == '"' {
				v := string(p.src[start:p.pos])
				p.pos++
				return v, nil
			}
			if p.src[p.pos] == '\n' {
				p.line++
			}
			p.pos++
		}
		return "", p.errf("unterminated quoted value")

	default:
		// Bare value (numbers, macros) runs to comma or closing brace.
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != '}' && p.src[p.pos] != '\n' {
			p.pos++
		}
		v := strings.TrimSpace(string(p.src[start:p.pos]))
		if v == "" {
			return "", p.errf("empty field value")
		}
		return v, nil
	}
}
