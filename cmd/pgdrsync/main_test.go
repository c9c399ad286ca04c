package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/frankban/quicktest"

	"github.com/percona/pg-dr-sync/internal/config"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Config{
		Primary: config.Primary{Host: "coordinator.example", Port: 5432, DB: "postgres"},
		Storage: config.Storage{ManifestDir: filepath.Join(dir, "manifests")},
		Archive: config.Archive{ArchiveDir: filepath.Join(dir, "archive")},
		DR: config.DR{
			StateDir:    filepath.Join(dir, "state"),
			ReceiptsDir: filepath.Join(dir, "receipts"),
		},
	}
	cfg.Primary.PIDFile = filepath.Join(dir, "primary.pid")
	cfg.DR.PIDFile = filepath.Join(dir, "dr.pid")

	b, err := json.Marshal(cfg)
	quicktest.Assert(t, err, quicktest.IsNil)

	path := filepath.Join(dir, "config.json")
	quicktest.Assert(t, os.WriteFile(path, b, 0o644), quicktest.IsNil)
	quicktest.Assert(t, os.MkdirAll(filepath.Join(dir, "state"), 0o755), quicktest.IsNil)
	quicktest.Assert(t, os.MkdirAll(filepath.Join(dir, "receipts"), 0o755), quicktest.IsNil)
	return path
}

func TestPrimaryPIDStatusReportsNotRunning(t *testing.T) {
	c := quicktest.New(t)
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	code := run([]string{"--config", configPath, "primary", "pid-status"})
	c.Assert(code, quicktest.Equals, 0)
}

func TestDRPIDStatusReportsNotRunning(t *testing.T) {
	c := quicktest.New(t)
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	code := run([]string{"--config", configPath, "dr", "pid-status"})
	c.Assert(code, quicktest.Equals, 0)
}

func TestDRStatusWithNoPriorStateSucceeds(t *testing.T) {
	c := quicktest.New(t)
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	code := run([]string{"--config", configPath, "dr", "status"})
	c.Assert(code, quicktest.Equals, 0)
}

func TestPrimaryStatusWithNoManifestsYetFails(t *testing.T) {
	c := quicktest.New(t)
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	code := run([]string{"--config", configPath, "primary", "status"})
	c.Assert(code, quicktest.Equals, 1)
}

func TestMissingConfigFileIsConfigError(t *testing.T) {
	c := quicktest.New(t)
	code := run([]string{"--config", "/nonexistent/config.json", "dr", "pid-status"})
	c.Assert(code, quicktest.Equals, exitConfig)
}

func TestLogsWithoutLogFileConfiguredFails(t *testing.T) {
	c := quicktest.New(t)
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	code := run([]string{"--config", configPath, "dr", "logs"})
	c.Assert(code, quicktest.Equals, 1)
}
