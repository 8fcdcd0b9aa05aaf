/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - SQL Extraction Tests
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package extract

import (
	"testing"
)

func TestKeywordExtract(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "leading prose",
			input:  "Sure! SELECT Name FROM artists;",
			want:   "SELECT Name FROM artists;",
			wantOK: true,
		},
		{
			name:   "adds terminator",
			input:  "SELECT COUNT(*) FROM employees",
			want:   "SELECT COUNT(*) FROM employees;",
			wantOK: true,
		},
		{
			name:   "lowercase keyword",
			input:  "here you go: select * from albums; hope that helps",
			want:   "select * from albums;",
			wantOK: true,
		},
		{
			name:   "spans lines until blank line",
			input:  "SELECT a.Name\nFROM artists a\nJOIN albums b ON a.ArtistId = b.ArtistId\n\nThis joins the tables.",
			want:   "SELECT a.Name\nFROM artists a\nJOIN albums b ON a.ArtistId = b.ArtistId;",
			wantOK: true,
		},
		{
			name:   "markdown fence",
			input:  "```sql\nSELECT Title FROM albums\n```",
			want:   "SELECT Title FROM albums;",
			wantOK: true,
		},
		{
			name:   "first statement wins",
			input:  "WITH t AS (SELECT 1) SELECT * FROM t; DROP TABLE x;",
			want:   "WITH t AS (SELECT 1) SELECT * FROM t;",
			wantOK: true,
		},
		{
			name:   "keyword must be followed by whitespace",
			input:  "The SELECTED rows are below.",
			wantOK: false,
		},
		{
			name:   "thai prose before statement",
			input:  "นี่คือคำสั่ง SQL: SELECT Name FROM artists",
			want:   "SELECT Name FROM artists;",
			wantOK: true,
		},
		{
			name:   "no sql",
			input:  "I cannot answer that question.",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Keyword{}.Extract(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Extract(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeywordExtractIdempotent(t *testing.T) {
	inputs := []string{
		"Sure! SELECT Name FROM artists;",
		"select e.FirstName, e.LastName\nfrom employees e\nwhere e.Title = 'Sales'",
		"```sql\nINSERT INTO artists (Name) VALUES ('x')\n```",
		"DELETE FROM tracks WHERE Milliseconds < 1000;;",
	}

	for _, input := range inputs {
		first, ok := Keyword{}.Extract(input)
		if !ok {
			t.Fatalf("Extract(%q) found nothing", input)
		}
		second, ok := Keyword{}.Extract(first)
		if !ok || second != first {
			t.Errorf("Extract not idempotent: %q -> %q", first, second)
		}
	}
}

func TestFencedExtract(t *testing.T) {
	input := "Try SELECT 1 first.\n\n```SQL\nSELECT Name\nFROM artists\n```\nDone."
	got, ok := Fenced{}.Extract(input)
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	if got != "SELECT Name\nFROM artists;" {
		t.Errorf("Extract() = %q", got)
	}

	// no fence falls back to keyword scanning
	got, ok = Fenced{}.Extract("Sure! SELECT Name FROM artists;")
	if !ok || got != "SELECT Name FROM artists;" {
		t.Errorf("fallback Extract() = %q, %v", got, ok)
	}
}

func TestFencedExtractMultiByteBeforeFence(t *testing.T) {
	// U+023A grows by one byte when lowercased
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT 1; -- ȺȺȺȺȺȺȺȺ```sql", "SELECT 1;"},
		{"ȺȺȺ ```SQL\nSELECT Name FROM artists\n```", "SELECT Name FROM artists;"},
		{"ศิลปิน Ⱥ```sql\nSELECT Name FROM artists;\n``` done", "SELECT Name FROM artists;"},
	}

	for _, tt := range tests {
		got, ok := Fenced{}.Extract(tt.input)
		if !ok || got != tt.want {
			t.Errorf("Fenced.Extract(%q) = %q, %v; want %q", tt.input, got, ok, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "keyword", "FENCED"} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q) error = %v", name, err)
		}
	}
	if _, err := New("parser"); err == nil {
		t.Error("New(parser) expected error")
	}
}
