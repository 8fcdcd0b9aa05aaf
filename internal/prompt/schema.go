/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Schema Summary Rendering
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package prompt

import (
	"fmt"
	"strings"

	"pgedge-nl2sql/internal/schema"
)

// RenderSchema renders a schema description as the text summary embedded in
// generation prompts. The few-shot examples were written against this exact
// layout, so keep it stable:
//
//	- Table: artists
//	  Columns:
//	    • ArtistId (INTEGER)
//	  Primary Keys:
//	    • ArtistId
//	  Foreign Keys:
//	    • ArtistId -> artists(ArtistId)
//
// The Foreign Keys section only appears for tables that have any, and every
// table is followed by a blank line.
func RenderSchema(desc *schema.Description) string {
	if desc == nil {
		return ""
	}

	var sb strings.Builder
	for _, table := range desc.Tables {
		sb.WriteString(fmt.Sprintf("- Table: %s\n", table.Name))

		sb.WriteString("  Columns:\n")
		for _, col := range table.Columns {
			sb.WriteString(fmt.Sprintf("    • %s (%s)\n", col.Name, col.Type))
		}

		sb.WriteString("  Primary Keys:\n")
		for _, pk := range table.PrimaryKeys {
			sb.WriteString(fmt.Sprintf("    • %s\n", pk))
		}

		if len(table.ForeignKeys) > 0 {
			sb.WriteString("  Foreign Keys:\n")
			for _, fk := range table.ForeignKeys {
				sb.WriteString(fmt.Sprintf("    • %s -> %s(%s)\n", fk.FromColumn, fk.ToTable, fk.ToColumn))
			}
		}

		sb.WriteString("\n")
	}
	return sb.String()
}
