package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/ports"
	"gasdock/internal/usecase/ingest"
)

// Ledger is the read side of the ingest service.
type Ledger interface {
	ListEvents(ctx context.Context, query ingest.EventQuery) ([]ports.TestEvent, error)
	ListDevices(ctx context.Context, query ingest.DeviceQuery) ([]ports.DeviceSnapshot, error)
	DeviceDetail(ctx context.Context, serial string) (ingest.DeviceDetail, error)
	Stats(ctx context.Context, window time.Duration) (ingest.Stats, error)
	ExportCSV(ctx context.Context, w io.Writer, query ingest.EventQuery) (int, error)
}

var _ Ledger = (*ingest.Service)(nil)

// NewRouter exposes the ledger as a read-only JSON API. baseCtx carries the
// logger handlers log with.
func NewRouter(baseCtx context.Context, ledger Ledger) http.Handler {
	h := &handler{
		ledger: ledger,
		logCtx: logging.WithAttrs(baseCtx, slog.String("component", "transport.httpapi")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.listEvents)
		r.Get("/events/export.csv", h.exportCSV)
		r.Get("/devices", h.listDevices)
		r.Get("/devices/{serial}", h.deviceDetail)
		r.Get("/stats", h.stats)
	})
	return r
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logging.Debug(
			h.logCtx,
			"http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
