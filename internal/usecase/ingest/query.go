package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gasdock/internal/domain/certificate"
	"gasdock/internal/errs"
	"gasdock/internal/ports"
)

const (
	DefaultFailureWindow = 7 * 24 * time.Hour
	recentFailuresLimit  = 25
	defaultDeviceHistory = 200
)

var ErrInvalidFilter = errors.New("invalid filter")

// EventQuery filters test events. From and To bound tested_at inclusively.
type EventQuery struct {
	Serial string
	Result string
	From   *time.Time
	To     *time.Time
	Limit  int
}

type DeviceQuery struct {
	Serial     string
	LastResult string
	From       *time.Time
	To         *time.Time
}

type DeviceDetail struct {
	Device ports.DeviceSnapshot
	Events []ports.TestEvent
}

type Stats struct {
	TotalDevices     int64
	TotalEvents      int64
	FailureWindow    time.Duration
	FailuresInWindow int64
	RecentFailures   []ports.TestEvent
}

// CSVHeader is the column order of ExportCSV.
var CSVHeader = []string{
	"id",
	"serial",
	"device_type",
	"tested_at",
	"result",
	"file_path",
	"imported_at",
	"parse_status",
	"parse_error",
}

func (s *Service) ListEvents(ctx context.Context, query EventQuery) ([]ports.TestEvent, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	filter, err := query.filter()
	if err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, filter)
}

func (s *Service) ListDevices(ctx context.Context, query DeviceQuery) ([]ports.DeviceSnapshot, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	result, err := parseOptionalResult(query.LastResult)
	if err != nil {
		return nil, err
	}
	if err := checkRange(query.From, query.To); err != nil {
		return nil, err
	}
	return s.repo.ListDevices(ctx, ports.DeviceFilter{
		SerialContains: query.Serial,
		LastResult:     result,
		TestedFrom:     query.From,
		TestedTo:       query.To,
	})
}

// DeviceDetail returns a snapshot with its most recent events.
func (s *Service) DeviceDetail(ctx context.Context, serial string) (DeviceDetail, error) {
	if err := s.checkRead(ctx); err != nil {
		return DeviceDetail{}, err
	}
	serial = strings.ToUpper(strings.TrimSpace(serial))
	if serial == "" {
		return DeviceDetail{}, fmt.Errorf("%w: serial is required", ErrInvalidFilter)
	}

	device, err := s.repo.GetDevice(ctx, serial)
	if err != nil {
		return DeviceDetail{}, err
	}
	events, err := s.repo.ListEvents(ctx, ports.TestEventFilter{Serial: serial, Limit: defaultDeviceHistory})
	if err != nil {
		return DeviceDetail{}, err
	}
	return DeviceDetail{Device: device, Events: events}, nil
}

// Stats summarizes the ledger. A non-positive window uses DefaultFailureWindow.
func (s *Service) Stats(ctx context.Context, window time.Duration) (Stats, error) {
	if err := s.checkRead(ctx); err != nil {
		return Stats{}, err
	}
	if window <= 0 {
		window = DefaultFailureWindow
	}

	devices, err := s.repo.CountDevices(ctx)
	if err != nil {
		return Stats{}, err
	}
	events, err := s.repo.CountEvents(ctx)
	if err != nil {
		return Stats{}, err
	}
	failures, err := s.repo.CountEventsSince(ctx, string(certificate.ResultFail), s.now().Add(-window))
	if err != nil {
		return Stats{}, err
	}
	recent, err := s.repo.ListEvents(ctx, ports.TestEventFilter{
		Result: string(certificate.ResultFail),
		Limit:  recentFailuresLimit,
	})
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalDevices:     devices,
		TotalEvents:      events,
		FailureWindow:    window,
		FailuresInWindow: failures,
		RecentFailures:   recent,
	}, nil
}

// ExportCSV writes the matching events to w and returns the row count.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, query EventQuery) (int, error) {
	if w == nil {
		return 0, errors.New("writer is required")
	}
	events, err := s.ListEvents(ctx, query)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, errs.Wrap(err, "write csv header")
	}
	for _, event := range events {
		if err := cw.Write([]string{
			strconv.FormatUint(event.ID, 10),
			event.Serial,
			event.DeviceType,
			event.TestedAt.UTC().Format(time.RFC3339),
			event.Result,
			event.SourceFilePath,
			event.ImportedAt.UTC().Format(time.RFC3339),
			event.ParseStatus,
			event.ParseError,
		}); err != nil {
			return 0, errs.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, errs.Wrap(err, "flush csv")
	}
	return len(events), nil
}

func (s *Service) checkRead(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errors.New("ledger repository is required")
	}
	return nil
}

// Validate reports ErrInvalidFilter for malformed queries.
func (q EventQuery) Validate() error {
	_, err := q.filter()
	return err
}

func (q EventQuery) filter() (ports.TestEventFilter, error) {
	result, err := parseOptionalResult(q.Result)
	if err != nil {
		return ports.TestEventFilter{}, err
	}
	if err := checkRange(q.From, q.To); err != nil {
		return ports.TestEventFilter{}, err
	}
	if q.Limit < 0 {
		return ports.TestEventFilter{}, fmt.Errorf("%w: limit must not be negative", ErrInvalidFilter)
	}
	return ports.TestEventFilter{
		SerialContains: q.Serial,
		Result:         result,
		TestedFrom:     q.From,
		TestedTo:       q.To,
		Limit:          q.Limit,
	}, nil
}

func parseOptionalResult(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	result, ok := certificate.ParseResultFilter(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown result %q", ErrInvalidFilter, raw)
	}
	return string(result), nil
}

func checkRange(from *time.Time, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	return nil
}

// ParseDateBound accepts RFC 3339 or a bare YYYY-MM-DD (UTC). A bare upper
// bound covers the whole day. Empty input yields nil.
func ParseDateBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrInvalidFilter, raw)
	}
	if upper {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}
