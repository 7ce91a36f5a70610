package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	BaseURL string        `split_words:"true" default:"http://localhost"`
	Limit   int           `default:"3"`
	Timeout time.Duration `default:"5s"`
}

func TestNewExportsEnvFileWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "SAMPLECFG_BASE_URL=http://memory.local\nSAMPLECFG_LIMIT=7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("SAMPLECFG_LIMIT", "9")
	SetEnvFile(path)
	t.Cleanup(func() { SetEnvFile("") })

	conf, err := New[sampleConfig]("SAMPLECFG")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.BaseURL != "http://memory.local" {
		t.Fatalf("BaseURL = %q", conf.BaseURL)
	}
	if conf.Limit != 9 {
		t.Fatalf("Limit = %d, want existing env value 9", conf.Limit)
	}
	if conf.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %v", conf.Timeout)
	}
}

func TestNewMissingEnvFile(t *testing.T) {
	SetEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	t.Cleanup(func() { SetEnvFile("") })

	if _, err := New[sampleConfig]("SAMPLECFG_MISSING"); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
