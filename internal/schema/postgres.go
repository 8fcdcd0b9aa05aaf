/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - PostgreSQL Schema Introspection
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

import (
	"context"
	"database/sql"
)

// PostgresIntrospector reads schema metadata from information_schema
type PostgresIntrospector struct {
	db         *sql.DB
	schemaName string
}

// NewPostgresIntrospector creates an introspector limited to one schema
func NewPostgresIntrospector(db *sql.DB, schemaName string) *PostgresIntrospector {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresIntrospector{db: db, schemaName: schemaName}
}

// Introspect reads every base table in the schema with its columns and keys
func (p *PostgresIntrospector) Introspect(ctx context.Context) (*Description, error) {
	if err := ping(ctx, p.db); err != nil {
		return nil, err
	}

	names, err := p.tableNames(ctx)
	if err != nil {
		return nil, &IntrospectionError{Step: "list tables", Err: err}
	}

	columns, err := p.columns(ctx)
	if err != nil {
		return nil, &IntrospectionError{Step: "list columns", Err: err}
	}

	primaryKeys, err := p.primaryKeys(ctx)
	if err != nil {
		return nil, &IntrospectionError{Step: "list primary keys", Err: err}
	}

	foreignKeys, err := p.foreignKeys(ctx)
	if err != nil {
		return nil, &IntrospectionError{Step: "list foreign keys", Err: err}
	}

	desc := &Description{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		desc.Tables = append(desc.Tables, Table{
			Name:        name,
			Columns:     columns[name],
			PrimaryKeys: primaryKeys[name],
			ForeignKeys: foreignKeys[name],
		})
	}
	return desc, nil
}

func (p *PostgresIntrospector) tableNames(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`, p.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (p *PostgresIntrospector) columns(ctx context.Context) (map[string][]Column, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`, p.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string][]Column)
	for rows.Next() {
		var table string
		var col Column
		if err := rows.Scan(&table, &col.Name, &col.Type); err != nil {
			return nil, err
		}
		columns[table] = append(columns[table], col)
	}
	return columns, rows.Err()
}

func (p *PostgresIntrospector) primaryKeys(ctx context.Context) (map[string][]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.ordinal_position`, p.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pks := make(map[string][]string)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, err
		}
		pks[table] = append(pks[table], column)
	}
	return pks, rows.Err()
}

func (p *PostgresIntrospector) foreignKeys(ctx context.Context) (map[string][]ForeignKey, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT tc.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.ordinal_position`, p.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make(map[string][]ForeignKey)
	for rows.Next() {
		var table string
		var fk ForeignKey
		if err := rows.Scan(&table, &fk.FromColumn, &fk.ToTable, &fk.ToColumn); err != nil {
			return nil, err
		}
		fks[table] = append(fks[table], fk)
	}
	return fks, rows.Err()
}
