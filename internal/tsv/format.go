/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Result Value Formatting
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package tsv formats query result cells, either escaped for tab-separated
// output or as plain display text.
package tsv

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// NullText is how DisplayValue shows SQL NULL
const NullText = "NULL"

// DisplayValue converts a result cell to readable text without escaping
func DisplayValue(v any) string {
	if v == nil {
		return NullText
	}
	return text(v)
}

// FormatValue converts a result cell to a TSV-safe string. NULL becomes
// the empty string; tabs and line breaks become backslash escapes.
func FormatValue(v any) string {
	if v == nil {
		return ""
	}

	s := text(v)
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

func text(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%v", val)
	case []any, map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FormatRows renders a header line followed by one line per row
func FormatRows(columns []string, rows [][]any) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = Write(&sb, columns, rows)
	return strings.TrimSuffix(sb.String(), "\n")
}

// Write streams columns and rows to w as newline-terminated TSV lines.
// Nothing is written when there are no columns.
func Write(w io.Writer, columns []string, rows [][]any) error {
	if len(columns) == 0 {
		return nil
	}

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = FormatValue(c)
	}
	if _, err := io.WriteString(w, strings.Join(header, "\t")+"\n"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for n, row := range rows {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = FormatValue(v)
		}
		if _, err := io.WriteString(w, strings.Join(values, "\t")+"\n"); err != nil {
			return fmt.Errorf("failed to write row %d: %w", n+1, err)
		}
	}
	return nil
}
