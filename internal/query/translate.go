// Package query translates user search strings into FTS5 query syntax.
// Translation is a pure function: it never fails, and anything it cannot
// improve it passes through with an advisory warning.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// columns are the searchable FTS columns a field qualifier may target.
var columns = map[string]bool{
	"key":      true,
	"title":    true,
	"author":   true,
	"abstract": true,
	"keywords": true,
	"venue":    true,
	"year":     true,
}

// aliases maps common BibTeX field names onto their FTS column.
var aliases = map[string]string{
	"journal":   "venue",
	"booktitle": "venue",
}

var (
	operatorRe = regexp.MustCompile(`(?i)\b(and|or|not|near)\b`)
	qualifier  = regexp.MustCompile(`(\w+):("[^"]+"|[^\s:]+)`)
	hasField   = regexp.MustCompile(`\w+:`)
)

// Translate converts a user query into FTS5 syntax and returns it together
// with any advisory warnings. Warnings never block execution.
func Translate(userQuery string) (string, []string) {
	q := normalize(userQuery)
	if q == "" {
		return "", nil
	}

	// First matching class wins: field, boolean, phrase, wildcard, plain.
	switch {
	case hasField.MatchString(q):
		return rewriteQualifiers(q)
	case operatorRe.MatchString(q):
		// Boolean operators pass through natively; embedded qualifiers
		// still get rewritten (none present here, hasField ruled them out).
		return q, nil
	case isPhrase(q):
		return q, nil
	case strings.ContainsAny(q, "*?"):
		return rewriteWildcards(q)
	default:
		return q, nil
	}
}

// normalize collapses whitespace and upper-cases boolean operators.
func normalize(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	return operatorRe.ReplaceAllStringFunc(q, strings.ToUpper)
}

// rewriteQualifiers maps field:value terms onto FTS column syntax. Unknown
// fields are stripped down to their value with a warning.
func rewriteQualifiers(q string) (string, []string) {
	var warnings []string
	out := qualifier.ReplaceAllStringFunc(q, func(m string) string {
		parts := qualifier.FindStringSubmatch(m)
		field := strings.ToLower(parts[1])
		value := parts[2]

		if alias, ok := aliases[field]; ok {
			field = alias
		}
		if columns[field] {
			return fmt.Sprintf("{%s}:%s", field, value)
		}
		warnings = append(warnings,
			fmt.Sprintf("Unknown field '%s', searching in all fields", field))
		return value
	})
	return out, warnings
}

// rewriteWildcards converts ? to * (FTS5 has only the * wildcard) and warns
// about wildcards that are not in trailing position.
func rewriteWildcards(q string) (string, []string) {
	q = strings.ReplaceAll(q, "?", "*")

	var warnings []string
	for _, term := range strings.Fields(q) {
		if strings.Contains(term, "*") && !strings.HasSuffix(term, "*") {
			warnings = append(warnings, fmt.Sprintf(
				"FTS5 only supports trailing wildcards, '%s' may not work as expected", term))
		}
	}
	return q, warnings
}

func isPhrase(q string) bool {
	return len(q) > 2 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`)
}
