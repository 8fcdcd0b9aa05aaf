/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Result Explainer
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package explain turns result rows into a short human-readable answer in
// the language of the question (Thai or English).
package explain

import (
	"fmt"
	"strings"
	"unicode"

	"pgedge-nl2sql/internal/tsv"
)

// Language of a question
type Language int

const (
	English Language = iota
	Thai
)

// DetectLanguage returns Thai when the text contains any rune from the Thai
// Unicode block (U+0E00..U+0E7F).
func DetectLanguage(text string) Language {
	for _, r := range text {
		if r >= 0x0E00 && r <= 0x0E7F {
			return Thai
		}
	}
	return English
}

// rule renders rows for one category of question
type rule struct {
	name    string
	matches func(question string) bool
	heading [2]string // English, Thai
	row     func(lang Language, question string, row []any) string
}

// Explainer picks the first matching rule; unmatched questions get a
// generic table of every row.
type Explainer struct {
	rules []rule
}

// New returns an Explainer with the built-in Chinook rules
func New() *Explainer {
	return &Explainer{rules: defaultRules()}
}

// Category names the rule that would explain question, or "generic"
func (e *Explainer) Category(question string) string {
	for _, r := range e.rules {
		if r.matches(question) {
			return r.name
		}
	}
	return "generic"
}

// Explain summarizes rows for question. sql is the statement that produced
// them.
func (e *Explainer) Explain(question string, columns []string, rows [][]any, sql string) string {
	lang := DetectLanguage(question)

	var sb strings.Builder
	sb.WriteString(pick(lang, "Result:", "ผลลัพธ์:"))
	sb.WriteString("\n")

	for _, r := range e.rules {
		if !r.matches(question) {
			continue
		}
		sb.WriteString(pick(lang, r.heading[0], r.heading[1]))
		sb.WriteString("\n")
		if len(rows) == 0 {
			sb.WriteString(noRows(lang))
			return sb.String()
		}
		for _, row := range rows {
			sb.WriteString(r.row(lang, question, row))
			sb.WriteString("\n")
		}
		return sb.String()
	}

	sb.WriteString(pick(lang, "Here is the result from running the SQL:", "นี่คือผลลัพธ์จากการรัน SQL:"))
	sb.WriteString("\n")
	if len(rows) == 0 {
		sb.WriteString(noRows(lang))
		return sb.String()
	}
	sb.WriteString(Table(columns, rows))
	return sb.String()
}

// Table renders rows as a markdown table. Missing column names are filled
// with their position.
func Table(columns []string, rows [][]any) string {
	width := len(columns)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}

	header := make([]string, width)
	sep := make([]string, width)
	for i := range header {
		if i < len(columns) && columns[i] != "" {
			header[i] = escapeCell(columns[i])
		} else {
			header[i] = fmt.Sprintf("column%d", i+1)
		}
		sep[i] = "---"
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		cells := make([]string, width)
		for i := range cells {
			if i < len(row) {
				cells[i] = escapeCell(tsv.DisplayValue(row[i]))
			}
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func pick(lang Language, en, th string) string {
	if lang == Thai {
		return th
	}
	return en
}

func noRows(lang Language) string {
	return pick(lang, "(no rows)", "(ไม่พบข้อมูล)") + "\n"
}

// cell returns row[i] as display text, or fallback when the row is short
func cell(row []any, i int, fallback string) string {
	if i < len(row) {
		return tsv.DisplayValue(row[i])
	}
	return fallback
}

func containsAny(question string, words ...string) bool {
	lower := strings.ToLower(question)
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// containsWord reports whether question has word as a whole word, ignoring
// case, so "count" does not match "country" or "accounts"
func containsWord(question, word string) bool {
	fields := strings.FieldsFunc(question, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if strings.EqualFold(f, word) {
			return true
		}
	}
	return false
}

func defaultRules() []rule {
	return []rule{
		{
			name:    "artist",
			matches: func(q string) bool { return containsAny(q, "ศิลปิน", "artist") },
			heading: [2]string{
				"Here is the artist information matching your question:",
				"นี่คือข้อมูลศิลปินที่ตรงกับคำถามของคุณ:",
			},
			row: func(lang Language, _ string, row []any) string {
				if lang == Thai {
					return fmt.Sprintf("- ศิลปิน: %s, เพลง: %s, ความยาว: %s มิลลิวินาที",
						cell(row, 0, "ไม่ระบุ"), cell(row, 1, "ไม่ระบุ"), cell(row, 2, "ไม่ระบุ"))
				}
				return fmt.Sprintf("- Artist: %s, Track: %s, Duration: %s milliseconds",
					cell(row, 0, "n/a"), cell(row, 1, "n/a"), cell(row, 2, "n/a"))
			},
		},
		{
			name:    "employees",
			matches: func(q string) bool { return containsAny(q, "หาพนักงาน", "find all employees") },
			heading: [2]string{
				"Here are the employees matching your question:",
				"นี่คือรายชื่อพนักงานที่ตรงกับคำถามของคุณ:",
			},
			row: func(lang Language, q string, row []any) string {
				if containsAny(q, "เงินเดือนมากกว่า", "salary greater than") {
					return fmt.Sprintf("- %s (%s: %s)", cell(row, 0, ""),
						pick(lang, "salary", "เงินเดือน"), cell(row, 1, "?"))
				}
				return "- " + cell(row, 0, "")
			},
		},
		{
			name:    "count",
			matches: func(q string) bool { return containsAny(q, "นับจำนวน") || containsWord(q, "count") },
			heading: [2]string{
				"Here is the count result:",
				"นี่คือจำนวนที่คำนวณได้:",
			},
			row: func(_ Language, _ string, row []any) string {
				if len(row) == 1 {
					return "- " + cell(row, 0, "")
				}
				return fmt.Sprintf("- %s: %s", cell(row, 0, ""), cell(row, 1, ""))
			},
		},
	}
}
