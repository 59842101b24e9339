package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/domain/certificate"
	"gasdock/internal/errs"
	"gasdock/internal/ports"
)

// Outcome describes what happened to one certificate.
type Outcome struct {
	IngestID    string
	Stage       certificate.Stage
	Destination string
	Event       ports.TestEvent
	// Cause is the failure that sent the file to quarantine.
	Cause error
}

func (o Outcome) Quarantined() bool { return o.Cause != nil }

// ProcessFile runs one certificate through the pipeline. Expected per-file
// failures end in quarantine and a parse_error event with a nil error. A
// non-nil error is either a context error (the file was left in place) or
// is marked with errs.Fatal and needs an operator.
func (s *Service) ProcessFile(ctx context.Context, path string) (out Outcome, err error) {
	if ctx == nil {
		return Outcome{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, errs.Wrap(err, "check context")
	}
	if s.stability == nil || s.extractor == nil || s.archive == nil {
		return Outcome{}, errors.New("ingest pipeline is not fully configured")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Outcome{}, errors.New("path is required")
	}

	out = Outcome{IngestID: s.newID(), Stage: certificate.StageDetected}
	logCtx := logging.WithAttrs(
		ctx,
		slog.String("component", "usecase.ingest"),
		slog.String("ingest_id", out.IngestID),
		slog.String("path", path),
	)
	logging.Info(logCtx, "certificate detected")

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fault := errs.WithStack(fmt.Errorf("unexpected fault at stage %s: %v", out.Stage, r))
		logging.Error(
			logCtx,
			"certificate processing panicked",
			slog.String("fault", "unexpected"),
			slog.String("stage", string(out.Stage)),
			slog.Any("err", errs.Loggable(fault)),
		)
		switch out.Stage {
		case certificate.StageRecorded:
			err = nil
		case certificate.StageRelocated, certificate.StageFailed, certificate.StageQuarantined:
			at := out.Destination
			if at == "" {
				at = path
			}
			err = s.escalate(logCtx, out, at, fault)
		default:
			out, err = s.quarantine(logCtx, out, path, fault)
		}
	}()

	s.advance(logCtx, &out, certificate.StageStabilizing)
	if err := s.stability.WaitForStable(ctx, path); err != nil {
		if ctx.Err() != nil {
			return out, s.interrupted(logCtx, out, err)
		}
		return s.quarantine(logCtx, out, path, err)
	}

	s.advance(logCtx, &out, certificate.StageExtracting)
	cls, err := s.classify(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return out, s.interrupted(logCtx, out, err)
		}
		return s.quarantine(logCtx, out, path, err)
	}

	s.advance(logCtx, &out, certificate.StageClassified)
	dest, err := s.archive.MoveSorted(path, ports.SortedDestination{
		Result:   string(cls.Result),
		TestedAt: cls.TestedAt,
		Serial:   cls.Serial,
	})
	if err != nil {
		return s.quarantine(logCtx, out, path, err)
	}
	out.Destination = dest
	s.advance(logCtx, &out, certificate.StageRelocated)

	event, err := s.RecordEvent(logCtx, EventInput{
		Serial:      cls.Serial,
		DeviceType:  cls.DeviceType,
		TestedAt:    cls.TestedAt,
		Result:      string(cls.Result),
		FilePath:    dest,
		ParseStatus: certificate.ParseStatusOK,
	})
	if err != nil {
		return out, s.escalate(logCtx, out, dest, err)
	}
	out.Event = event
	s.advance(logCtx, &out, certificate.StageRecorded)

	logging.Info(
		logCtx,
		"certificate recorded",
		slog.String("serial", cls.Serial),
		slog.String("result", string(cls.Result)),
		slog.String("destination", dest),
		slog.Uint64("event_id", event.ID),
	)
	return out, nil
}

func (s *Service) classify(ctx context.Context, path string) (certificate.Classification, error) {
	name, nameErr := certificate.ParseFilename(filepath.Base(path), s.cfg.Location)
	if nameErr != nil {
		return certificate.Classify(name, nameErr, certificate.ContentFacts{}, nil)
	}

	pages, err := s.extractor.ExtractText(ctx, path)
	if err != nil {
		return certificate.Classify(name, nil, certificate.ContentFacts{}, err)
	}
	return certificate.Classify(name, nil, certificate.ExtractContent(pages), nil)
}

// quarantine moves src out of the way and records the failure. The event is
// recorded even when the move fails, pointing at the original path.
func (s *Service) quarantine(ctx context.Context, out Outcome, src string, cause error) (Outcome, error) {
	out.Cause = cause
	s.advance(ctx, &out, certificate.StageFailed)

	attrs := []slog.Attr{slog.Any("err", errs.Loggable(cause))}
	if certificate.IsExpected(cause) {
		logging.Warn(ctx, "certificate failed", attrs...)
	} else {
		logging.Error(ctx, "certificate failed", append(attrs, slog.String("fault", "unexpected"))...)
	}

	recordPath := src
	dest, moveErr := s.archive.MoveQuarantine(src)
	if moveErr != nil {
		logging.Error(ctx, "quarantine failed, recording event at original path", slog.Any("err", errs.Loggable(moveErr)))
	} else {
		recordPath = dest
		out.Destination = dest
		s.advance(ctx, &out, certificate.StageQuarantined)
	}

	event, err := s.RecordEvent(ctx, EventInput{
		Serial:      certificate.UnknownSerial,
		TestedAt:    s.now(),
		Result:      string(certificate.ResultUnknown),
		FilePath:    recordPath,
		ParseStatus: certificate.ParseStatusError,
		ParseError:  cause.Error(),
	})
	if err != nil {
		return out, s.escalate(ctx, out, recordPath, errors.Join(moveErr, err))
	}
	out.Event = event
	s.advance(ctx, &out, certificate.StageRecorded)

	if moveErr != nil {
		return out, s.escalate(ctx, out, src, moveErr)
	}
	logging.Warn(ctx, "certificate quarantined", slog.String("destination", dest), slog.Uint64("event_id", event.ID))
	return out, nil
}

// escalate surfaces a failure nobody will retry: it is logged, appended to
// the incident journal and returned marked as fatal.
func (s *Service) escalate(ctx context.Context, out Outcome, path string, cause error) error {
	fatal := errs.Fatal(cause)
	logging.Error(
		ctx,
		"certificate needs manual remediation",
		slog.String("stage", string(out.Stage)),
		slog.String("location", path),
		slog.Any("err", errs.Loggable(fatal)),
	)

	if s.incidents != nil {
		if err := s.incidents.Report(context.WithoutCancel(ctx), ports.Incident{
			IngestID:   out.IngestID,
			Path:       path,
			Stage:      string(out.Stage),
			Cause:      cause.Error(),
			OccurredAt: s.now(),
		}); err != nil {
			logging.Error(ctx, "write incident failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return fatal
}

func (s *Service) interrupted(ctx context.Context, out Outcome, cause error) error {
	logging.Warn(
		ctx,
		"processing interrupted, file left in import directory",
		slog.String("stage", string(out.Stage)),
		slog.Any("err", errs.Loggable(cause)),
	)
	return errs.Wrap(ctx.Err(), "process certificate")
}

func (s *Service) advance(ctx context.Context, out *Outcome, next certificate.Stage) {
	if !certificate.CanTransition(out.Stage, next) {
		logging.Warn(ctx, "unexpected stage transition", slog.String("from", string(out.Stage)), slog.String("to", string(next)))
	}
	out.Stage = next
	logging.Debug(ctx, "stage changed", slog.String("stage", string(next)))
}
