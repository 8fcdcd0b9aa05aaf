/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Prompt Builder
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package prompt renders the text prompts sent to the model. Every function
// here is pure: the same inputs always produce the same prompt.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"pgedge-nl2sql/internal/schema"
)

// Example is a few-shot (question, SQL) pair shown to the model
type Example struct {
	Question string `yaml:"question" json:"question"`
	SQL      string `yaml:"sql" json:"sql"`
}

const generationTemplate = `Database schema:
{{.Schema}}
You can answer questions asked in either Thai or English, the two main languages of this system.
Convert the natural language question below into a SQL query.
Answer with the SQL query only. Do not add explanations or any other text.

Examples:
{{range $i, $e := .Examples}}Example {{inc $i}}:
Question: "{{$e.Question}}"
SQL: {{$e.SQL}}

{{end}}Question: "{{.Question}}"
SQL:`

const correctionTemplate = `The following SQL query failed: {{.SQL}}
Error: {{.Error}}
Please fix the query. Answer with the corrected SQL query only, without any explanation.`

const tableQuestionTemplate = `Write a SQL statement in {{.Dialect}} to answer the question '{{.Question}}'
using the table {{.Table}} with columns {{.Columns}}.
Answer with the SQL statement only, no explanation.`

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// Builder renders generation, correction and table-question prompts
type Builder struct {
	generation    *template.Template
	correction    *template.Template
	tableQuestion *template.Template
}

// NewBuilder parses the prompt templates
func NewBuilder() *Builder {
	return &Builder{
		generation:    mustParse("generation", generationTemplate),
		correction:    mustParse("correction", correctionTemplate),
		tableQuestion: mustParse("table_question", tableQuestionTemplate),
	}
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text))
}

// Generation builds the initial prompt: schema summary, instructions, the
// few-shot examples in order, and the target question last.
func (b *Builder) Generation(question, schemaText string, examples []Example) (string, error) {
	return execute(b.generation, struct {
		Schema   string
		Examples []Example
		Question string
	}{
		Schema:   schemaText,
		Examples: examples,
		Question: question,
	})
}

// Correction builds the retry prompt embedding the failed SQL and the
// database error verbatim.
func (b *Builder) Correction(failedSQL, errText string) (string, error) {
	return execute(b.correction, struct {
		SQL   string
		Error string
	}{
		SQL:   failedSQL,
		Error: errText,
	})
}

// TableQuestion builds the single-table prompt used with a static table
// metadata file.
func (b *Builder) TableQuestion(question, table string, columns []schema.Column, dialect string) (string, error) {
	return execute(b.tableQuestion, struct {
		Question string
		Table    string
		Columns  string
		Dialect  string
	}{
		Question: question,
		Table:    table,
		Columns:  ColumnList(columns),
		Dialect:  dialect,
	})
}

// ColumnList renders columns as "name (type), name (type)"
func ColumnList(columns []schema.Column) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s (%s)", col.Name, col.Type))
	}
	return strings.Join(parts, ", ")
}

func execute(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
