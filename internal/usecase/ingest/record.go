package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/domain/certificate"
	"gasdock/internal/errs"
	"gasdock/internal/ports"
)

// EventInput is one ledger entry as produced by the pipeline.
type EventInput struct {
	Serial      string
	DeviceType  string
	TestedAt    time.Time
	Result      string
	FilePath    string
	ParseStatus certificate.ParseStatus
	ParseError  string
}

// RecordEvent appends a test event and advances the device snapshot in one
// transaction. Writes for the same serial never interleave. Storage failures
// are retried and finally reported as ErrPersistenceFailed.
func (s *Service) RecordEvent(ctx context.Context, input EventInput) (ports.TestEvent, error) {
	if ctx == nil {
		return ports.TestEvent{}, errors.New("context is required")
	}
	if s.repo == nil {
		return ports.TestEvent{}, errors.New("ledger repository is required")
	}
	if s.uow == nil {
		return ports.TestEvent{}, errors.New("ledger unit of work is required")
	}
	if input.TestedAt.IsZero() {
		return ports.TestEvent{}, errors.New("tested_at is required")
	}

	serial := strings.ToUpper(strings.TrimSpace(input.Serial))
	if serial == "" {
		serial = certificate.UnknownSerial
	}
	result := string(certificate.NormalizeResult(input.Result))
	status := input.ParseStatus
	if status == "" {
		status = certificate.ParseStatusOK
	}
	testedAt := input.TestedAt.UTC()

	logCtx := logging.WithAttrs(ctx, slog.String("serial", serial))

	unlock := s.serials.Lock(serial)
	defer unlock()

	backoff := s.cfg.RecordBackoff
	var lastErr error
	for attempt := 1; attempt <= s.cfg.RecordAttempts; attempt++ {
		now := s.now()
		var event ports.TestEvent
		lastErr = s.uow.WithTx(ctx, func(txCtx context.Context) error {
			created, err := s.repo.AppendEvent(txCtx, ports.TestEventCreate{
				Serial:         serial,
				DeviceType:     input.DeviceType,
				TestedAt:       testedAt,
				Result:         result,
				SourceFilePath: input.FilePath,
				ImportedAt:     now,
				ParseStatus:    string(status),
				ParseError:     input.ParseError,
			})
			if err != nil {
				return err
			}
			if _, err := s.repo.ApplySnapshot(txCtx, ports.DeviceSnapshot{
				Serial:        serial,
				DeviceType:    input.DeviceType,
				LastTestedAt:  testedAt,
				LastResult:    result,
				LastUpdatedAt: now,
			}); err != nil {
				return err
			}
			event = created
			return nil
		})
		if lastErr == nil {
			return event, nil
		}

		if attempt == s.cfg.RecordAttempts {
			break
		}
		logging.Warn(
			logCtx,
			"record event failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("err", errs.Loggable(lastErr)),
		)
		if err := s.sleep(ctx, backoff); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
		backoff *= 2
	}

	return ports.TestEvent{}, fmt.Errorf(
		"%w: record event for %s: %w",
		certificate.ErrPersistenceFailed,
		serial,
		lastErr,
	)
}
