package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gasdock/internal/bootstrap/config"
	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
	"gasdock/internal/infrastructure/persistence/schema"
	"gasdock/internal/infrastructure/persistence/sqlite/model"
)

type App struct {
	Config config.Config
	DB     *gorm.DB
}

// InitSchema creates or upgrades the ledger tables and records the schema
// version. It is safe to run on every start.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	db := a.DB.WithContext(ctx)
	if err := db.AutoMigrate(
		&model.TestEvent{},
		&model.Device{},
		&schema.Meta{},
	); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&schema.Meta{Key: schema.KeySchemaVersion, Value: schema.Version}).Error; err != nil {
		return errs.Wrap(err, "record schema version")
	}

	logging.Info(logCtx, "schema migration completed", slog.String("schema_version", schema.Version))
	return nil
}

// SchemaVersion returns the recorded version, or "" before init-db ran.
func (a *App) SchemaVersion(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}

	db := a.DB.WithContext(ctx)
	if !db.Migrator().HasTable(&schema.Meta{}) {
		return "", nil
	}
	var meta schema.Meta
	err := db.Where("key = ?", schema.KeySchemaVersion).Take(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(err, "read schema version")
	}
	return meta.Value, nil
}

// EnsureLayout creates the import, archive, quarantine and log directories.
func (a *App) EnsureLayout(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	paths := a.Config.Paths
	for _, dir := range []string{paths.ImportDir, paths.SortedDir, paths.QuarantineDir, paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrapf(err, "create directory %q", dir)
		}
	}
	logging.Debug(logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")), "directory layout ensured")
	return nil
}
