package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"gasdock/internal/ports"
)

const (
	defaultExtension      = ".pdf"
	defaultRecordAttempts = 3
	defaultRecordBackoff  = 250 * time.Millisecond
	defaultShutdownGrace  = 30 * time.Second
)

// Config tunes the pipeline. Zero values fall back to the defaults above.
type Config struct {
	ImportDir      string
	Extension      string
	Workers        int
	RecordAttempts int
	RecordBackoff  time.Duration
	ShutdownGrace  time.Duration
	Location       *time.Location
}

// Deps are the collaborators of the pipeline. Incidents may be nil.
type Deps struct {
	Repo      ports.LedgerRepository
	UoW       ports.UnitOfWork
	Extractor ports.TextExtractor
	Stability ports.StabilityDetector
	Archive   ports.Archive
	Clock     ports.Clock
	Incidents ports.IncidentReporter
}

type Service struct {
	repo      ports.LedgerRepository
	uow       ports.UnitOfWork
	extractor ports.TextExtractor
	stability ports.StabilityDetector
	archive   ports.Archive
	clock     ports.Clock
	incidents ports.IncidentReporter
	cfg       Config

	newID    func() string
	sleep    func(context.Context, time.Duration) error
	serials  *keyedMutex
	inflight *pathSet
}

func NewService(deps Deps, cfg Config) *Service {
	cfg.Extension = strings.TrimSpace(cfg.Extension)
	if cfg.Extension == "" {
		cfg.Extension = defaultExtension
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.RecordAttempts < 1 {
		cfg.RecordAttempts = defaultRecordAttempts
	}
	if cfg.RecordBackoff <= 0 {
		cfg.RecordBackoff = defaultRecordBackoff
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = defaultShutdownGrace
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Service{
		repo:      deps.Repo,
		uow:       deps.UoW,
		extractor: deps.Extractor,
		stability: deps.Stability,
		archive:   deps.Archive,
		clock:     deps.Clock,
		incidents: deps.Incidents,
		cfg:       cfg,
		newID:     func() string { return uuid.NewString() },
		sleep:     sleepContext,
		serials:   newKeyedMutex(),
		inflight:  newPathSet(),
	}
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now().UTC()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
