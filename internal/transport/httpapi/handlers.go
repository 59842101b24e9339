package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
	"gasdock/internal/ports"
	"gasdock/internal/usecase/ingest"
)

type handler struct {
	ledger Ledger
	logCtx context.Context
}

type eventView struct {
	ID          uint64 `json:"id"`
	Serial      string `json:"serial"`
	DeviceType  string `json:"device_type,omitempty"`
	TestedAt    string `json:"tested_at"`
	Result      string `json:"result"`
	FilePath    string `json:"file_path"`
	ImportedAt  string `json:"imported_at"`
	ParseStatus string `json:"parse_status"`
	ParseError  string `json:"parse_error,omitempty"`
}

type deviceView struct {
	Serial        string `json:"serial"`
	DeviceType    string `json:"device_type,omitempty"`
	LastTestedAt  string `json:"last_tested_at"`
	LastResult    string `json:"last_result"`
	LastUpdatedAt string `json:"last_updated_at"`
}

type deviceDetailView struct {
	Device deviceView  `json:"device"`
	Events []eventView `json:"events"`
}

type statsView struct {
	TotalDevices     int64       `json:"total_devices"`
	TotalEvents      int64       `json:"total_events"`
	FailureWindow    string      `json:"failure_window"`
	FailuresInWindow int64       `json:"failures_in_window"`
	RecentFailures   []eventView `json:"recent_failures"`
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	query, err := eventQueryFrom(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	events, err := h.ledger.ListEvents(r.Context(), query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventViews(events))
}

func (h *handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	query, err := eventQueryFrom(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Validate before the header is committed.
	if err := query.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	filename := fmt.Sprintf("test-events-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	if _, err := h.ledger.ExportCSV(r.Context(), w, query); err != nil {
		logging.Error(h.logCtx, "csv export failed mid-stream", slog.Any("err", errs.Loggable(err)))
	}
}

func (h *handler) listDevices(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	from, to, err := rangeFrom(values)
	if err != nil {
		h.writeError(w, err)
		return
	}
	devices, err := h.ledger.ListDevices(r.Context(), ingest.DeviceQuery{
		Serial:     values.Get("serial"),
		LastResult: values.Get("result"),
		From:       from,
		To:         to,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]deviceView, 0, len(devices))
	for _, device := range devices {
		out = append(out, toDeviceView(device))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) deviceDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.ledger.DeviceDetail(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceDetailView{
		Device: toDeviceView(detail.Device),
		Events: toEventViews(detail.Events),
	})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if raw := strings.TrimSpace(r.URL.Query().Get("window_days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			h.writeError(w, fmt.Errorf("%w: window_days must be a positive integer", ingest.ErrInvalidFilter))
			return
		}
		window = time.Duration(days) * 24 * time.Hour
	}

	stats, err := h.ledger.Stats(r.Context(), window)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsView{
		TotalDevices:     stats.TotalDevices,
		TotalEvents:      stats.TotalEvents,
		FailureWindow:    stats.FailureWindow.String(),
		FailuresInWindow: stats.FailuresInWindow,
		RecentFailures:   toEventViews(stats.RecentFailures),
	})
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ingest.ErrInvalidFilter):
		status = http.StatusBadRequest
	case errors.Is(err, ports.ErrDeviceNotFound):
		status = http.StatusNotFound
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error(h.logCtx, "ledger query failed", slog.Any("err", errs.Loggable(err)))
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func eventQueryFrom(values url.Values) (ingest.EventQuery, error) {
	from, to, err := rangeFrom(values)
	if err != nil {
		return ingest.EventQuery{}, err
	}
	query := ingest.EventQuery{
		Serial: values.Get("serial"),
		Result: values.Get("result"),
		From:   from,
		To:     to,
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return ingest.EventQuery{}, fmt.Errorf("%w: limit must be an integer", ingest.ErrInvalidFilter)
		}
		query.Limit = limit
	}
	return query, nil
}

func rangeFrom(values url.Values) (*time.Time, *time.Time, error) {
	from, err := ingest.ParseDateBound(values.Get("from"), false)
	if err != nil {
		return nil, nil, err
	}
	to, err := ingest.ParseDateBound(values.Get("to"), true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func toEventViews(events []ports.TestEvent) []eventView {
	out := make([]eventView, 0, len(events))
	for _, event := range events {
		out = append(out, eventView{
			ID:          event.ID,
			Serial:      event.Serial,
			DeviceType:  event.DeviceType,
			TestedAt:    event.TestedAt.UTC().Format(time.RFC3339),
			Result:      event.Result,
			FilePath:    event.SourceFilePath,
			ImportedAt:  event.ImportedAt.UTC().Format(time.RFC3339),
			ParseStatus: event.ParseStatus,
			ParseError:  event.ParseError,
		})
	}
	return out
}

func toDeviceView(device ports.DeviceSnapshot) deviceView {
	return deviceView{
		Serial:        device.Serial,
		DeviceType:    device.DeviceType,
		LastTestedAt:  device.LastTestedAt.UTC().Format(time.RFC3339),
		LastResult:    device.LastResult,
		LastUpdatedAt: device.LastUpdatedAt.UTC().Format(time.RFC3339),
	}
}
