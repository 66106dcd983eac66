package database

import (
	"context"
	"errors"
	"testing"
	"time"

	configx "github.com/autoosone/auto-state/pkg/config"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory", cfg: Config{Driver: "memory"}},
		{name: "memory mixed case", cfg: Config{Driver: " Memory "}},
		{name: "sqlite with dsn", cfg: Config{Driver: "sqlite", DSN: "file::memory:"}},
		{name: "postgres without dsn", cfg: Config{Driver: "postgres"}, wantErr: true},
		{name: "unknown driver", cfg: Config{Driver: "mysql", DSN: "x"}, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := Config{Driver: "oracle", DSN: "x"}
	if err := cfg.Validate(); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("Validate() error = %v, want ErrUnsupportedDriver", err)
	}
	if _, err := Open(cfg); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("Open() error = %v, want ErrUnsupportedDriver", err)
	}
}

func TestUsesMemory(t *testing.T) {
	t.Parallel()

	mem := Config{Driver: "memory"}
	if !mem.UsesMemory() {
		t.Fatalf("UsesMemory() = false for memory driver")
	}
	pg := Config{Driver: "postgres", DSN: "postgres://localhost/db"}
	if pg.UsesMemory() {
		t.Fatalf("UsesMemory() = true for postgres driver")
	}
}

func TestOpenSQLiteInMemory(t *testing.T) {
	t.Parallel()

	db, err := Open(Config{Driver: "sqlite", DSN: "file::memory:?cache=shared"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var n int
	if err := db.NewSelect().ColumnExpr("1").Scan(context.Background(), &n); err != nil {
		t.Fatalf("select 1: %v", err)
	}
	if n != 1 {
		t.Fatalf("select 1 = %d", n)
	}
}

func TestConfigDefaultsDoNotSeed(t *testing.T) {
	t.Setenv("DBDEFAULTS_DRIVER", "sqlite")
	t.Setenv("DBDEFAULTS_DSN", "file::memory:")

	cfg, err := configx.New[Config]("DBDEFAULTS")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.SeedDemo {
		t.Fatalf("SeedDemo = true by default")
	}
	if cfg.WriteTimeout != 5*time.Second || cfg.QueueSize != 1024 {
		t.Fatalf("cfg = %+v", cfg)
	}

	t.Setenv("DBDEFAULTS_SEED_DEMO", "true")
	cfg, err = configx.New[Config]("DBDEFAULTS")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !cfg.SeedDemo {
		t.Fatalf("SeedDemo = false with DBDEFAULTS_SEED_DEMO=true")
	}
}
