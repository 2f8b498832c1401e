// Package sqldb opens the SQL backends (sqlite, mysql) shared by the task
// and project repositories and creates their tables.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// DB is a database handle plus the dialect it was opened with.
type DB struct {
	*sql.DB
	Driver string
}

// Open connects, pings and migrates. For sqlite the dsn is a file path
// (parent directories are created); for mysql it is a go-sql-driver DSN
// and parseTime is forced on so DATETIME columns scan into time.Time.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqldb: dsn is required for driver %q", driver)
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, "sqlite3":
		driver = DriverSQLite
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, err
			}
		}
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqldb: open sqlite: %w", err)
		}
		// one writer at a time; avoids "database is locked" under concurrent mutations
		db.SetMaxOpenConns(1)
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("sqldb: parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		db, err = sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, fmt.Errorf("sqldb: open mysql: %w", err)
		}
	default:
		return nil, fmt.Errorf("sqldb: unsupported driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb: ping %s: %w", driver, err)
	}
	out := &DB{DB: db, Driver: driver}
	if err := out.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb: migrate: %w", err)
	}
	return out, nil
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range db.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) schema() []string {
	if db.Driver == DriverMySQL {
		return []string{
			`CREATE TABLE IF NOT EXISTS tasks (
    task_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    task TEXT NOT NULL,
    meeting VARCHAR(255) NOT NULL DEFAULT '',
    project VARCHAR(255) NOT NULL DEFAULT '',
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS projects (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL,
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL
)`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id INTEGER PRIMARY KEY AUTOINCREMENT,
			task TEXT NOT NULL,
			meeting TEXT NOT NULL DEFAULT '',
			project TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
}
