package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gasdock/internal/bootstrap/config"
	"gasdock/internal/bootstrap/database"
	"gasdock/internal/infrastructure/persistence/schema"
)

func setupApp(t *testing.T) *App {
	t.Helper()

	root := t.TempDir()
	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(root, "gasdock.sqlite")},
		Paths: config.PathsConfig{
			ImportDir:     filepath.Join(root, "import"),
			SortedDir:     filepath.Join(root, "sorted"),
			QuarantineDir: filepath.Join(root, "quarantine"),
			LogDir:        filepath.Join(root, "logs"),
		},
	}
	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return &App{Config: cfg, DB: db}
}

func TestInitSchemaRecordsVersionAndIsIdempotent(t *testing.T) {
	app := setupApp(t)
	ctx := context.Background()

	version, err := app.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() before init error = %v", err)
	}
	if version != "" {
		t.Fatalf("SchemaVersion() before init = %q, want empty", version)
	}

	for i := 0; i < 2; i++ {
		if err := app.InitSchema(ctx); err != nil {
			t.Fatalf("InitSchema() run %d error = %v", i+1, err)
		}
	}

	version, err = app.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != schema.Version {
		t.Fatalf("SchemaVersion() = %q, want %q", version, schema.Version)
	}

	for _, table := range []string{"tests", "devices", "meta"} {
		if !app.DB.Migrator().HasTable(table) {
			t.Fatalf("table %s missing", table)
		}
	}
	if !app.DB.Migrator().HasIndex("devices", "ix_devices_result_tested") {
		t.Fatal("composite index ix_devices_result_tested missing")
	}
}

func TestEnsureLayout(t *testing.T) {
	app := setupApp(t)
	if err := app.EnsureLayout(context.Background()); err != nil {
		t.Fatalf("EnsureLayout() error = %v", err)
	}
	p := app.Config.Paths
	for _, dir := range []string{p.ImportDir, p.SortedDir, p.QuarantineDir, p.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("directory %s not created: %v", dir, err)
		}
	}
}
