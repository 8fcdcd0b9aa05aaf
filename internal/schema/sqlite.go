/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - SQLite Schema Introspection
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
	"fmt"
	"sort"
	"strings"
)

// SQLiteIntrospector reads schema metadata through sqlite_master and PRAGMAs
type SQLiteIntrospector struct {
	db *sql.DB
}

// NewSQLiteIntrospector creates an introspector for a SQLite connection
func NewSQLiteIntrospector(db *sql.DB) *SQLiteIntrospector {
	return &SQLiteIntrospector{db: db}
}

// Introspect reads every base table with its columns and keys
func (i *SQLiteIntrospector) Introspect(ctx context.Context) (*Description, error) {
	if err := ping(ctx, i.db); err != nil {
		return nil, err
	}

	names, err := i.tableNames(ctx)
	if err != nil {
		return nil, &IntrospectionError{Step: "list tables", Err: err}
	}

	desc := &Description{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		table := Table{Name: name}

		table.Columns, table.PrimaryKeys, err = i.columns(ctx, name)
		if err != nil {
			return nil, &IntrospectionError{Step: "table_info", Table: name, Err: err}
		}

		table.ForeignKeys, err = i.foreignKeys(ctx, name)
		if err != nil {
			return nil, &IntrospectionError{Step: "foreign_key_list", Table: name, Err: err}
		}

		desc.Tables = append(desc.Tables, table)
	}

	return desc, nil
}

func (i *SQLiteIntrospector) tableNames(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY rowid`)
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

// columns returns the columns in declaration order and the primary key
// columns in key order
func (i *SQLiteIntrospector) columns(ctx context.Context, table string) ([]Column, []string, error) {
	rows, err := i.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type pkColumn struct {
		name string
		seq  int
	}

	var columns []Column
	var pks []pkColumn
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, nil, err
		}
		columns = append(columns, Column{Name: name, Type: colType})
		if pk > 0 {
			pks = append(pks, pkColumn{name: name, seq: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	sort.SliceStable(pks, func(a, b int) bool { return pks[a].seq < pks[b].seq })
	primaryKeys := make([]string, 0, len(pks))
	for _, pk := range pks {
		primaryKeys = append(primaryKeys, pk.name)
	}

	return columns, primaryKeys, nil
}

func (i *SQLiteIntrospector) foreignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	type reference struct {
		fk       ForeignKey
		seq      int
		implicit bool
	}

	rows, err := i.db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}

	var refs []reference
	for rows.Next() {
		var (
			id, seq                   int
			toTable, from             string
			to                        sql.NullString
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&id, &seq, &toTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			rows.Close()
			return nil, err
		}
		refs = append(refs, reference{
			fk:       ForeignKey{FromColumn: from, ToTable: toTable, ToColumn: to.String},
			seq:      seq,
			implicit: !to.Valid || to.String == "",
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the connection before looking up referenced tables
	rows.Close()

	// A NULL target column refers to the target's primary key, column seq
	// of it for composite keys.
	targetKeys := make(map[string][]string)
	fks := make([]ForeignKey, 0, len(refs))
	for _, ref := range refs {
		if ref.implicit {
			pks, ok := targetKeys[ref.fk.ToTable]
			if !ok {
				_, pks, err = i.columns(ctx, ref.fk.ToTable)
				if err != nil {
					return nil, fmt.Errorf("resolving reference to %s: %w", ref.fk.ToTable, err)
				}
				targetKeys[ref.fk.ToTable] = pks
			}
			if ref.seq < len(pks) {
				ref.fk.ToColumn = pks[ref.seq]
			}
		}
		fks = append(fks, ref.fk)
	}
	if len(fks) == 0 {
		return nil, nil
	}
	return fks, nil
}

// quoteIdent quotes a SQLite identifier for use inside a PRAGMA call
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
