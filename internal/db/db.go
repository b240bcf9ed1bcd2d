package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"airwatch/internal/config"
)

// Open connects to the configured database and verifies connectivity.
// Statement logging through logger is enabled by cfg.DBLogSQL.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sqlx.DB
	if cfg.DBLogSQL {
		connector, err := NewLoggingConnector(driverFor(cfg.DBDriver), dsn, logger)
		if err != nil {
			return nil, err
		}
		db = sqlx.NewDb(sql.OpenDB(connector), cfg.DBDriver)
	} else {
		db, err = sqlx.Open(cfg.DBDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sqlx.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func driverFor(name string) driver.Driver {
	if name == "postgres" {
		return &pq.Driver{}
	}
	return &sqlite3.SQLiteDriver{}
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.DBDSN != "" {
		return cfg.DBDSN, nil
	}
	if cfg.DBDriver == "postgres" {
		return "", fmt.Errorf("postgres requires DB_DSN")
	}

	path := cfg.SQLitePath
	if path == ":memory:" {
		return path, nil
	}
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if i := strings.IndexByte(dir, '?'); i >= 0 {
		dir = dir[:i]
	}
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// foreign_keys enforces FK constraints, busy_timeout rides out short
	// writer locks, WAL lets readers proceed during a snapshot save.
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
