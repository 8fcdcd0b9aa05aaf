/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - SQL Extraction
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package extract pulls a candidate SQL statement out of free-form model
// output. It is a heuristic scraper, not a parser: nothing is validated.
package extract

import (
	"fmt"
	"strings"
	"unicode"
)

// Extractor locates a candidate SQL statement in model output. ok is false
// when no statement could be found.
type Extractor interface {
	Extract(text string) (sql string, ok bool)
}

// Keywords that may start a statement, matched case-insensitively
var Keywords = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH", "CREATE", "ALTER", "DROP"}

// New returns the extractor registered under name. An empty name selects
// the keyword extractor.
func New(name string) (Extractor, error) {
	switch strings.ToLower(name) {
	case "", "keyword":
		return Keyword{}, nil
	case "fenced":
		return Fenced{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q (expected keyword or fenced)", name)
	}
}

// Keyword finds the first statement keyword followed by whitespace and
// takes everything up to the first semicolon, blank line, or end of text.
type Keyword struct{}

// Extract implements Extractor
func (Keyword) Extract(text string) (string, bool) {
	start := findKeyword(text)
	if start < 0 {
		return "", false
	}

	candidate := text[start:]
	end := len(candidate)
	if i := strings.Index(candidate, ";"); i >= 0 && i < end {
		end = i
	}
	if i := strings.Index(candidate, "\n\n"); i >= 0 && i < end {
		end = i
	}
	candidate = strings.TrimSpace(candidate[:end])

	// a closing fence swallowed with the statement
	candidate = strings.TrimSpace(strings.TrimSuffix(candidate, "```"))
	if candidate == "" {
		return "", false
	}
	return terminate(candidate), true
}

// findKeyword returns the byte offset of the earliest keyword that is
// followed by whitespace, or -1.
func findKeyword(text string) int {
	upper := asciiUpper(text)
	best := -1
	for _, kw := range Keywords {
		from := 0
		for {
			i := strings.Index(upper[from:], kw)
			if i < 0 {
				break
			}
			pos := from + i
			if best >= 0 && pos >= best {
				break
			}
			next := pos + len(kw)
			if next < len(text) && isSpace(text[next]) {
				best = pos
				break
			}
			from = pos + 1
		}
	}
	return best
}

// asciiUpper upper-cases ASCII letters only so byte offsets stay aligned
// with the original text even when it contains multi-byte runes.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func isSpace(c byte) bool {
	return c < 0x80 && unicode.IsSpace(rune(c))
}

func terminate(sql string) string {
	if strings.HasSuffix(sql, ";") {
		return sql
	}
	return sql + ";"
}

// Fenced prefers the body of the first ```sql code block and falls back to
// Keyword when there is none.
type Fenced struct{}

// Extract implements Extractor
func (Fenced) Extract(text string) (string, bool) {
	if body, ok := fencedBody(text); ok {
		if sql, ok := (Keyword{}).Extract(body); ok {
			return sql, true
		}
	}
	return Keyword{}.Extract(text)
}

func fencedBody(text string) (string, bool) {
	open := strings.Index(asciiUpper(text), "```SQL")
	if open < 0 {
		return "", false
	}
	body := text[open+len("```sql"):]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body, true
}
