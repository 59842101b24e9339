package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type PathsConfig struct {
	ImportDir     string `mapstructure:"import_dir"`
	SortedDir     string `mapstructure:"sorted_dir"`
	QuarantineDir string `mapstructure:"quarantine_dir"`
	LogDir        string `mapstructure:"log_dir"`
}

type IngestConfig struct {
	Extension      string        `mapstructure:"extension"`
	StableChecks   int           `mapstructure:"stable_checks"`
	StableInterval time.Duration `mapstructure:"stable_interval"`
	Workers        int           `mapstructure:"workers"`
	RecordAttempts int           `mapstructure:"record_attempts"`
	RecordBackoff  time.Duration `mapstructure:"record_backoff"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
	Timezone       string        `mapstructure:"timezone"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Location resolves ingest.timezone; Validate has already checked it.
func (c IngestConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c PathsConfig) LogFile() string {
	return filepath.Join(c.LogDir, "gasdock.log")
}

func (c PathsConfig) IncidentFile() string {
	return filepath.Join(c.LogDir, "incidents.jsonl")
}

func (c PathsConfig) LockFile() string {
	return filepath.Join(c.LogDir, "gasdock.lock")
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("import_dir", cfg.Paths.ImportDir),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	var problems []error
	required := map[string]string{
		"database.dsn":         c.Database.DSN,
		"paths.import_dir":     c.Paths.ImportDir,
		"paths.sorted_dir":     c.Paths.SortedDir,
		"paths.quarantine_dir": c.Paths.QuarantineDir,
		"paths.log_dir":        c.Paths.LogDir,
	}
	for _, key := range []string{"database.dsn", "paths.import_dir", "paths.sorted_dir", "paths.quarantine_dir", "paths.log_dir"} {
		if strings.TrimSpace(required[key]) == "" {
			problems = append(problems, fmt.Errorf("%s is required", key))
		}
	}

	in := c.Ingest
	if in.StableChecks < 1 {
		problems = append(problems, errors.New("ingest.stable_checks must be at least 1"))
	}
	if in.StableInterval <= 0 {
		problems = append(problems, errors.New("ingest.stable_interval must be positive"))
	}
	if in.Workers < 1 {
		problems = append(problems, errors.New("ingest.workers must be at least 1"))
	}
	if in.RecordAttempts < 1 {
		problems = append(problems, errors.New("ingest.record_attempts must be at least 1"))
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		problems = append(problems, fmt.Errorf("ingest.timezone %q: %w", in.Timezone, err))
	}
	if c.Server.Enabled && strings.TrimSpace(c.Server.Listen) == "" {
		problems = append(problems, errors.New("server.listen is required when server.enabled"))
	}
	return errors.Join(problems...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gasdock")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/gasdock.sqlite")

	v.SetDefault("paths.import_dir", "data/import")
	v.SetDefault("paths.sorted_dir", "data/sorted")
	v.SetDefault("paths.quarantine_dir", "data/quarantine")
	v.SetDefault("paths.log_dir", "data/logs")

	v.SetDefault("ingest.extension", ".pdf")
	v.SetDefault("ingest.stable_checks", 3)
	v.SetDefault("ingest.stable_interval", 2*time.Second)
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.record_attempts", 3)
	v.SetDefault("ingest.record_backoff", 250*time.Millisecond)
	v.SetDefault("ingest.shutdown_grace", 30*time.Second)
	v.SetDefault("ingest.timezone", "UTC")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.listen", "127.0.0.1:8765")
}
