/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Schema Introspection
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package schema reads table, column and key metadata from a live database
// connection so it can be summarised for the model.
package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Column is a table column with its declared type
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ForeignKey is a single-column reference to another table
type ForeignKey struct {
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// Table describes one base table
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// Description is the introspected schema of a database. Tables keep the
// order the database reported them in. A Description is built once and
// treated as read-only afterwards.
type Description struct {
	Tables []Table `json:"tables"`
}

// Table returns the named table, if present
func (d *Description) Table(name string) (Table, bool) {
	if d == nil {
		return Table{}, false
	}
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// TableNames returns the table names in order
func (d *Description) TableNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Tables))
	for _, t := range d.Tables {
		names = append(names, t.Name)
	}
	return names
}

// IsPrimaryKey reports whether column is part of the table's primary key
func (t Table) IsPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKeys {
		if pk == column {
			return true
		}
	}
	return false
}

// Introspector reads a schema description from a database
type Introspector interface {
	Introspect(ctx context.Context) (*Description, error)
}

// IntrospectionError reports a failed metadata read. No partial schema is
// returned alongside it.
type IntrospectionError struct {
	Step  string // e.g. "list tables", "table_info"
	Table string // empty when the failure is not table specific
	Err   error
}

func (e *IntrospectionError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("schema introspection failed (%s on %s): %v", e.Step, e.Table, e.Err)
	}
	return fmt.Sprintf("schema introspection failed (%s): %v", e.Step, e.Err)
}

func (e *IntrospectionError) Unwrap() error {
	return e.Err
}

// For returns the introspector matching a database/sql driver name
func For(driver string, db *sql.DB) (Introspector, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return NewSQLiteIntrospector(db), nil
	case "pgx", "postgres":
		return NewPostgresIntrospector(db, "public"), nil
	default:
		return nil, fmt.Errorf("no schema introspector for driver %q", driver)
	}
}

// ping verifies the connection before any metadata query runs
func ping(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return &IntrospectionError{Step: "connect", Err: fmt.Errorf("database connection is nil")}
	}
	if err := db.PingContext(ctx); err != nil {
		return &IntrospectionError{Step: "connect", Err: err}
	}
	return nil
}
