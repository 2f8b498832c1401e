// Package storage opens the task and project repositories for the
// configured driver.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"taskdash/internal/config"
	"taskdash/internal/project"
	"taskdash/internal/sqldb"
	"taskdash/internal/task"
)

// SQLiteFile is the database file name used when storage.dsn is empty.
const SQLiteFile = "taskdash.db"

type Stores struct {
	Driver   string
	Tasks    task.Repo
	Projects project.Repository
	db       *sqldb.DB
}

// Ping checks that the backing store answers.
func (s *Stores) Ping(ctx context.Context) error {
	if s.db != nil {
		return s.db.PingContext(ctx)
	}
	_, err := s.Tasks.List(ctx, task.ListFilter{})
	return err
}

func (s *Stores) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DSN returns the sqlite path or mysql DSN that Open would use.
func DSN(cfg config.Storage) string {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn
	}
	if cfg.Driver == config.DriverSQLite {
		return filepath.Join(cfg.DataDir, SQLiteFile)
	}
	return ""
}

func Open(ctx context.Context, cfg config.Storage) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return &Stores{
			Driver:   cfg.Driver,
			Tasks:    task.NewMemoryRepo(),
			Projects: project.NewMemoryRepo(),
		}, nil

	case config.DriverFile:
		tasks, err := task.NewFileRepo(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open task file store: %w", err)
		}
		projects, err := project.NewFileRepo(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open project file store: %w", err)
		}
		return &Stores{Driver: cfg.Driver, Tasks: tasks, Projects: projects}, nil

	case config.DriverSQLite, config.DriverMySQL:
		db, err := sqldb.Open(ctx, cfg.Driver, DSN(cfg))
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:   cfg.Driver,
			Tasks:    task.NewSQLRepo(db),
			Projects: project.NewSQLRepo(db),
			db:       db,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
