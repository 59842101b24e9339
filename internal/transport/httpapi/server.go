package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the read API on listen until ctx is cancelled.
func Serve(ctx context.Context, listen string, ledger Ledger) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "transport.httpapi"))
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return errs.Wrapf(err, "listen on %s", listen)
	}

	srv := &http.Server{
		Handler:           NewRouter(ctx, ledger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	logging.Info(logCtx, "read api listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(err, "serve read api")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(err, "shutdown read api")
	}
	logging.Info(logCtx, "read api stopped")
	return nil
}
