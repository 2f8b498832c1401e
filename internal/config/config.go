package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type Config struct {
	Server    Server    `yaml:"server" json:"server"`
	Storage   Storage   `yaml:"storage" json:"storage"`
	Dashboard Dashboard `yaml:"dashboard" json:"dashboard"`
}

type Server struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	DevStatic       bool          `yaml:"dev_static" json:"dev_static"`
	StaticDir       string        `yaml:"static_dir" json:"static_dir"`
}

type Storage struct {
	// Driver is one of memory, file, sqlite, mysql.
	Driver  string `yaml:"driver" json:"driver"`
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// DSN is the sqlite file path or the mysql DSN. For sqlite it defaults
	// to <data_dir>/taskdash.db.
	DSN string `yaml:"dsn" json:"-"`
}

type Dashboard struct {
	// AddTarget is what the "Add New" form creates: project or task.
	AddTarget       string        `yaml:"add_target" json:"add_target"`
	MutationTimeout time.Duration `yaml:"mutation_timeout" json:"mutation_timeout"`
	SessionTTL      time.Duration `yaml:"session_ttl" json:"session_ttl"`
	Title           string        `yaml:"title" json:"title"`
	Greeting        string        `yaml:"greeting" json:"greeting"`
}

func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

func (s *Server) ApplyDefaults() {
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 10 * time.Second
	}
	if s.StaticDir == "" {
		s.StaticDir = "static"
	}
}

func (s *Storage) ApplyDefaults() {
	if s.Driver == "" {
		s.Driver = DriverFile
	}
	if s.DataDir == "" {
		s.DataDir = "data"
	}
}

func (d *Dashboard) ApplyDefaults() {
	if d.AddTarget == "" {
		d.AddTarget = "project"
	}
	if d.MutationTimeout == 0 {
		d.MutationTimeout = 10 * time.Second
	}
	if d.SessionTTL == 0 {
		d.SessionTTL = 12 * time.Hour
	}
	if d.Title == "" {
		d.Title = "Dashboard"
	}
	if d.Greeting == "" {
		d.Greeting = "Welcome back. Here are the tasks from your meetings."
	}
}

func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Dashboard.ApplyDefaults()
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverSQLite:
	case DriverMySQL:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("storage.dsn is required for the mysql driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Dashboard.AddTarget {
	case "project", "task":
	default:
		return fmt.Errorf("dashboard.add_target must be project or task, got %q", c.Dashboard.AddTarget)
	}
	if c.Dashboard.MutationTimeout < 0 || c.Dashboard.SessionTTL < 0 {
		return errors.New("dashboard timeouts must not be negative")
	}
	return nil
}

// Load reads a YAML config file, applies environment overrides and
// defaults, and validates the result. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
