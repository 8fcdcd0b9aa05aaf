/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Database Connection
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package database opens the single connection used for a session.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"pgedge-nl2sql/internal/logging"
)

// Supported driver names
const (
	DriverSQLite  = "sqlite"  // pure Go, modernc.org/sqlite
	DriverSQLite3 = "sqlite3" // cgo, mattn/go-sqlite3
	DriverPgx     = "pgx"     // PostgreSQL via pgx
)

// ApplicationName is reported to PostgreSQL servers
const ApplicationName = "pgedge-nl2sql"

// ErrNotFound is returned when a SQLite database file does not exist
var ErrNotFound = errors.New("database file not found")

// Config describes the database to open
type Config struct {
	Driver string
	// Path is a file path for SQLite drivers or a DSN for pgx
	Path string
	// ReadOnly opens SQLite files read-only and sets
	// default_transaction_read_only on PostgreSQL sessions
	ReadOnly bool
	// ConnectTimeout bounds the initial ping; zero means no bound
	ConnectTimeout time.Duration
}

// IsFileDriver reports whether driver opens a local database file
func IsFileDriver(driver string) bool {
	return driver == "" || driver == DriverSQLite || driver == DriverSQLite3
}

// Open connects and pings the database. The handle stays open for the
// whole session and must be closed by the caller.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	start := time.Now()
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logging.Warn("database_connect_failed", "driver", cfg.Driver, "path", Redact(cfg.Path), "error", err)
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	logging.Info("database_connected",
		"driver", cfg.Driver,
		"path", Redact(cfg.Path),
		"duration_ms", time.Since(start).Milliseconds())
	return db, nil
}

func open(cfg Config) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverSQLite3:
		info, err := os.Stat(cfg.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, cfg.Path)
			}
			return nil, fmt.Errorf("unable to access database file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("database path %s is a directory", cfg.Path)
		}

		db, err := sql.Open(cfg.Driver, sqliteDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// one question at a time; a single connection keeps SQLite happy
		db.SetMaxOpenConns(1)
		return db, nil

	case DriverPgx:
		connCfg, err := pgx.ParseConfig(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("unable to parse connection string: %w", err)
		}
		if connCfg.RuntimeParams == nil {
			connCfg.RuntimeParams = make(map[string]string)
		}
		if _, ok := connCfg.RuntimeParams["application_name"]; !ok {
			connCfg.RuntimeParams["application_name"] = ApplicationName
		}
		if cfg.ReadOnly {
			connCfg.RuntimeParams["default_transaction_read_only"] = "on"
		}
		return stdlib.OpenDB(*connCfg), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q (expected %s, %s or %s)",
			cfg.Driver, DriverSQLite, DriverSQLite3, DriverPgx)
	}
}

func sqliteDSN(cfg Config) string {
	if !cfg.ReadOnly {
		return cfg.Path
	}
	// both drivers accept SQLite URI filenames
	return "file:" + cfg.Path + "?mode=ro"
}

// Redact hides the password in a postgres:// URL for logging. Other
// strings are returned unchanged.
func Redact(connStr string) string {
	schemeIdx := strings.Index(connStr, "://")
	if schemeIdx == -1 {
		return connStr
	}

	scheme := connStr[:schemeIdx+3]
	rest := connStr[schemeIdx+3:]

	// the last @ before the path separates credentials; passwords may contain @
	authority := rest
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority = rest[:i]
	}
	at := strings.LastIndex(authority, "@")
	if at == -1 {
		return connStr
	}

	credentials := rest[:at]
	colon := strings.Index(credentials, ":")
	if colon == -1 {
		return connStr
	}
	return scheme + credentials[:colon] + ":***@" + rest[at+1:]
}
