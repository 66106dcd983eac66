package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Addr    string        `split_words:"true" default:":8080"`
	Timeout time.Duration `split_words:"true" default:"5s"`
	Name    string        `split_words:"true"`
}

type validatedConfig struct {
	Mode string `split_words:"true" default:"bad"`
}

var errBadMode = errors.New("bad mode")

func (c *validatedConfig) Validate() error {
	if c.Mode == "bad" {
		return errBadMode
	}
	return nil
}

func TestNewAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("CFGTEST_NAME", "flow")

	cfg, err := New[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.Name != "flow" {
		t.Fatalf("Name = %q, want flow", cfg.Name)
	}
}

func TestNewRunsValidate(t *testing.T) {
	_, err := New[validatedConfig]("CFGVALIDATE")
	if !errors.Is(err, errBadMode) {
		t.Fatalf("New() error = %v, want errBadMode", err)
	}
}

func TestExportEnvironmentKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "CFGFILE_KEEP=file\nCFGFILE_FRESH=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("CFGFILE_KEEP", "env")
	t.Cleanup(func() { _ = os.Unsetenv("CFGFILE_FRESH") })

	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}
	if got := os.Getenv("CFGFILE_KEEP"); got != "env" {
		t.Fatalf("CFGFILE_KEEP = %q, want env", got)
	}
	if got := os.Getenv("CFGFILE_FRESH"); got != "file" {
		t.Fatalf("CFGFILE_FRESH = %q, want file", got)
	}
}
