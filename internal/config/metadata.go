/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Table Metadata File
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pgedge-nl2sql/internal/schema"
)

// ErrMetadataNotFound is returned when the table metadata file is missing
var ErrMetadataNotFound = errors.New("table metadata file not found")

// TableMetadata describes one table from the metadata file
type TableMetadata struct {
	Name    string
	Columns []schema.Column
}

// Metadata is the static table description used instead of introspection.
// Tables and columns keep file order.
type Metadata struct {
	Tables []TableMetadata
}

// Table looks up a table by name
func (m *Metadata) Table(name string) (TableMetadata, bool) {
	for _, t := range m.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableMetadata{}, false
}

// LoadMetadata reads a metadata file shaped as
//
//	orders:
//	  columns:
//	    order_id: INT
//	    amount: DECIMAL
//
// JSON files with the same shape are accepted too.
func LoadMetadata(path string) (*Metadata, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, path)
		}
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	// decode into a node tree so mapping order survives
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid metadata file %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("metadata file %s is empty", path)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("metadata file %s: expected a mapping of table names", path)
	}

	md := &Metadata{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		table := TableMetadata{Name: name}

		columns, err := columnsNode(root.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("metadata file %s, table %s: %w", path, name, err)
		}
		for j := 0; j+1 < len(columns.Content); j += 2 {
			table.Columns = append(table.Columns, schema.Column{
				Name: columns.Content[j].Value,
				Type: columns.Content[j+1].Value,
			})
		}
		md.Tables = append(md.Tables, table)
	}
	return md, nil
}

func columnsNode(table *yaml.Node) (*yaml.Node, error) {
	if table.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping with a columns key")
	}
	for i := 0; i+1 < len(table.Content); i += 2 {
		if table.Content[i].Value != "columns" {
			continue
		}
		cols := table.Content[i+1]
		if cols.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("columns must map column names to types")
		}
		return cols, nil
	}
	return nil, fmt.Errorf("missing columns")
}
