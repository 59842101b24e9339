package bootstrap

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"gasdock/internal/bootstrap/config"
	"gasdock/internal/bootstrap/database"
	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/infrastructure/archive"
	"gasdock/internal/infrastructure/clock"
	"gasdock/internal/infrastructure/incident"
	sqliterepo "gasdock/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "gasdock/internal/infrastructure/persistence/sqlite/uow"
	"gasdock/internal/infrastructure/textextract"
	"gasdock/internal/infrastructure/watch"
	"gasdock/internal/ports"
	"gasdock/internal/usecase/ingest"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewLedgerRepository,
			fx.As(new(ports.LedgerRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			textextract.NewPDFExtractor,
			fx.As(new(ports.TextExtractor)),
		),
	),
	fx.Provide(
		fx.Annotate(
			clock.New,
			fx.As(new(ports.Clock)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideStability,
			fx.As(new(ports.StabilityDetector)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideArchive,
			fx.As(new(ports.Archive)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideIncidents,
			fx.As(new(ports.IncidentReporter)),
		),
	),
	fx.Provide(provideIngestService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideLogger(lc fx.Lifecycle, cfg config.Config) (*slog.Logger, error) {
	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Paths.LogFile(),
	}, os.Stderr)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return closer.Close()
		},
	})
	return logger.With(slog.String("app", cfg.App.Name)), nil
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideStability(cfg config.Config) *watch.StabilityDetector {
	return watch.NewStabilityDetector(cfg.Ingest.StableChecks, cfg.Ingest.StableInterval)
}

func provideArchive(cfg config.Config) *archive.Archivist {
	return archive.New(cfg.Paths.SortedDir, cfg.Paths.QuarantineDir, cfg.Ingest.Location())
}

func provideIncidents(cfg config.Config) *incident.Journal {
	return incident.NewJournal(cfg.Paths.IncidentFile())
}

type ingestParams struct {
	fx.In

	Config    config.Config
	Repo      ports.LedgerRepository
	UoW       ports.UnitOfWork
	Extractor ports.TextExtractor
	Stability ports.StabilityDetector
	Archive   ports.Archive
	Clock     ports.Clock
	Incidents ports.IncidentReporter
}

func provideIngestService(p ingestParams) *ingest.Service {
	in := p.Config.Ingest
	return ingest.NewService(ingest.Deps{
		Repo:      p.Repo,
		UoW:       p.UoW,
		Extractor: p.Extractor,
		Stability: p.Stability,
		Archive:   p.Archive,
		Clock:     p.Clock,
		Incidents: p.Incidents,
	}, ingest.Config{
		ImportDir:      p.Config.Paths.ImportDir,
		Extension:      in.Extension,
		Workers:        in.Workers,
		RecordAttempts: in.RecordAttempts,
		RecordBackoff:  in.RecordBackoff,
		ShutdownGrace:  in.ShutdownGrace,
		Location:       in.Location(),
	})
}
