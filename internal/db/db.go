package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"climate-server/internal/config"
)

// Tables the climate API reads from. Both are created and filled outside this process.
const (
	StationTable     = "station"
	MeasurementTable = "measurement"
)

// ErrSchemaMissing is returned by VerifySchema when an expected table cannot be read.
var ErrSchemaMissing = errors.New("expected table not accessible")

func Open(cfg config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var conn *sql.DB
	if cfg.LogSQL && cfg.SQLiteDriver == "sqlite3" {
		connector, err := NewLoggingConnector(dsn, logger)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		conn = sql.OpenDB(connector)
	} else {
		conn, err = sql.Open(cfg.SQLiteDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	// Pooling (SQLite is typically best with low concurrency; tune if needed)
	if cfg.SQLiteMaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.SQLiteMaxOpenConns)
	}
	if cfg.SQLiteMaxIdleConns >= 0 {
		conn.SetMaxIdleConns(cfg.SQLiteMaxIdleConns)
	}
	if cfg.SQLiteConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.SQLiteConnMaxLifetime)
	}

	// Validate connectivity early
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return sqlx.NewDb(conn, cfg.SQLiteDriver), nil
}

func Close(db *sqlx.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// VerifySchema checks that every table the API queries can be read.
func VerifySchema(ctx context.Context, db *sqlx.DB) error {
	for _, table := range []string{StationTable, MeasurementTable} {
		rows, err := db.QueryContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1")
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSchemaMissing, table, err)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("close probe rows for %s: %w", table, err)
		}
	}
	return nil
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.SQLiteDSN != "" {
		if cfg.SQLiteReadOnly && cfg.SQLiteDriver == "sqlite3" {
			return readOnlyDSN(cfg.SQLiteDSN), nil
		}
		return cfg.SQLiteDSN, nil
	}

	path := cfg.SQLitePath
	if path == "" {
		return "", errors.New("db: SQLITE_PATH is empty")
	}

	var params []string
	if cfg.SQLiteReadOnly {
		// The database is owned elsewhere: never create it, never write to it.
		params = []string{
			"mode=ro",
			"_query_only=true",
			"_busy_timeout=5000",
		}
	} else {
		dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		// Rollback journal, not WAL: the server later opens this file with mode=ro.
		params = []string{
			"_foreign_keys=on",
			"_busy_timeout=5000",
			"_journal_mode=DELETE",
		}
	}

	// If caller provided something like "file:/data/app.db?x=y" as Path, don't double-wrap
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// readOnlyDSN adds the read-only params a caller-supplied DSN does not set
// itself. mode=ro only takes effect on file: URIs.
func readOnlyDSN(dsn string) string {
	var params []string
	if strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, "mode=") {
		params = append(params, "mode=ro")
	}
	if !strings.Contains(dsn, "_query_only=") {
		params = append(params, "_query_only=true")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
