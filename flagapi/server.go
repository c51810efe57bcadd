// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package flagapi is the HTTP surface for reading and administering
// flags. Lookups mirror the facade's semantics exactly: an unknown flag
// is a 200 with the disabled default, and only strict mode surfaces
// store failures to the client.
package flagapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/flagrunner/internal/idgen"
	"github.com/cardinalhq/flagrunner/internal/logctx"
	"github.com/cardinalhq/flagrunner/internal/toggles"
)

const shutdownTimeout = 5 * time.Second

// Server serves the flag API.
type Server struct {
	cfg    Config
	facade *toggles.Facade
	tracer trace.Tracer
	server *http.Server
}

// NewServer creates a flag API server on top of the facade.
func NewServer(cfg Config, facade *toggles.Facade) *Server {
	return &Server{
		cfg:    cfg,
		facade: facade,
		tracer: otel.Tracer("github.com/cardinalhq/flagrunner/flagapi"),
	}
}

// Routes returns the API handler. Exposed separately so tests can drive
// it without a listener.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/flags", s.listFlagsHandler)
	mux.HandleFunc("GET /api/v1/flags/{name}", s.getFlagHandler)
	mux.HandleFunc("DELETE /api/v1/flags/{name}", s.clearFlagHandler)
	mux.HandleFunc("PUT /api/v1/flags/{name}/gates", s.putGateHandler)
	mux.HandleFunc("DELETE /api/v1/flags/{name}/gates", s.deleteGateHandler)
	mux.HandleFunc("POST /api/v1/cache/flush", s.flushCacheHandler)
	mux.HandleFunc("GET /api/v1/capabilities", s.capabilitiesHandler)
	return requestLogger(mux)
}

// requestLogger seeds each request context with a logger carrying a short
// operation id, so all lines a handler emits for one request correlate.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ll := slog.Default().With(slog.String("op", idgen.GenerateShortBase32ID()))
		next.ServeHTTP(w, r.WithContext(logctx.WithLogger(r.Context(), ll)))
	})
}

// Run serves the API until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Routes(),
	}

	slog.Info("Starting flag API server", slog.Int("port", s.cfg.Port))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("flag API server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Stopping flag API server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(sctx); err != nil {
		return fmt.Errorf("flag API shutdown: %w", err)
	}
	return ctx.Err()
}
