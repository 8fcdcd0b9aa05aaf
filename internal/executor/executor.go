/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Query Executor
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package executor runs generated SQL and turns driver failures into a
// structured outcome instead of an error.
package executor

import (
	"context"
	"database/sql"
	"fmt"

	"pgedge-nl2sql/internal/logging"
)

// Outcome is the result of one execution attempt. When Succeeded is false
// Error holds the raw driver message and Rows is nil.
type Outcome struct {
	Columns   []string
	Rows      [][]any
	Succeeded bool
	Error     string
}

// Executor runs SQL against an open database handle
type Executor struct {
	db      *sql.DB
	maxRows int
}

// New creates an executor. maxRows caps the rows fetched per query; zero
// means unlimited.
func New(db *sql.DB, maxRows int) *Executor {
	if maxRows < 0 {
		maxRows = 0
	}
	return &Executor{db: db, maxRows: maxRows}
}

// Execute runs query and fetches every result row. It never returns an
// error: every failure is reported through the Outcome.
func (e *Executor) Execute(ctx context.Context, query string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failed(fmt.Sprintf("%v", r))
		}
	}()

	if e.db == nil {
		return failed("no database connection")
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		logging.Debug("query_failed", "error", err)
		return failed(err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return failed(err.Error())
	}

	result := make([][]any, 0)
	for rows.Next() {
		if e.maxRows > 0 && len(result) >= e.maxRows {
			logging.Debug("row_limit_reached", "max_rows", e.maxRows)
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return failed(err.Error())
		}

		// drivers may reuse []byte buffers between rows
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return failed(err.Error())
	}

	return Outcome{Columns: columns, Rows: result, Succeeded: true}
}

func failed(msg string) Outcome {
	if msg == "" {
		msg = "query failed"
	}
	return Outcome{Error: msg}
}
