package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.StableChecks != 3 || cfg.Ingest.StableInterval != 2*time.Second {
		t.Fatalf("stability defaults = %+v", cfg.Ingest)
	}
	if cfg.Ingest.Workers != 1 || cfg.Ingest.Extension != ".pdf" || cfg.Server.Enabled {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Paths.IncidentFile() != filepath.Join("data", "logs", "incidents.jsonl") {
		t.Fatalf("IncidentFile() = %q", cfg.Paths.IncidentFile())
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"paths:",
		"  import_dir: /srv/import",
		"ingest:",
		"  stable_interval: 500ms",
		"  workers: 4",
		"  timezone: Europe/Berlin",
		"",
	}, "\n")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GD_INGEST_WORKERS", "2")

	cfg, err := Load(context.Background(), file)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Paths.ImportDir != "/srv/import" || cfg.Ingest.StableInterval != 500*time.Millisecond {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Ingest.Workers != 2 {
		t.Fatalf("Workers = %d, want env override 2", cfg.Ingest.Workers)
	}
	if cfg.Ingest.Location().String() != "Europe/Berlin" {
		t.Fatalf("Location() = %s", cfg.Ingest.Location())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{DSN: "x.sqlite"},
		Paths:    PathsConfig{ImportDir: "i", SortedDir: "s", QuarantineDir: "q"},
		Ingest:   IngestConfig{StableChecks: 0, StableInterval: time.Second, Workers: 1, RecordAttempts: 1, Timezone: "Mars/Olympus"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"paths.log_dir", "stable_checks", "Mars/Olympus"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("Validate() error = %v, want mention of %s", err, want)
		}
	}
}
