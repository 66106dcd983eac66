// Package database opens bun handles for the supported drivers.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

type Config struct {
	Driver       string        `split_words:"true" default:"memory"`
	DSN          string        `envconfig:"DSN"`
	WriteTimeout time.Duration `split_words:"true" default:"5s"`
	QueueSize    int           `split_words:"true" default:"1024"`
	MaxOpenConns int           `split_words:"true" default:"10"`
	// SeedDemo loads the demo inventory into the vehicles table on start.
	SeedDemo bool `split_words:"true" default:"false"`
}

func (c *Config) Validate() error {
	switch c.driver() {
	case DriverMemory:
		return nil
	case DriverPostgres, DriverSQLite:
		if strings.TrimSpace(c.DSN) == "" {
			return fmt.Errorf("dsn is required for driver %q", c.driver())
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}

func (c *Config) driver() string {
	return strings.ToLower(strings.TrimSpace(c.Driver))
}

// UsesMemory reports whether no SQL database is configured.
func (c *Config) UsesMemory() bool {
	return c.driver() == DriverMemory
}

// Open returns a bun handle for the configured driver. Callers own Close.
func Open(cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.driver() {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case DriverSQLite:
		return OpenSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// OpenSQLite opens a modernc SQLite database. A single connection keeps
// in-memory databases alive across queries.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	if err := sqldb.Ping(); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
