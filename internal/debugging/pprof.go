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

// Package debugging serves net/http/pprof on a port of its own, so
// profiling traffic never competes with flag lookups.
package debugging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"
	"time"
)

const (
	DefaultPprofPort = 6060

	shutdownTimeout = 5 * time.Second
)

// RunPprof serves the profiling endpoints until ctx is canceled. Setting
// PPROF_PORT overrides the default port; "0", "false", or "off" disables
// the listener entirely.
func RunPprof(ctx context.Context) {
	port := pprofPort()
	if port <= 0 {
		return
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", port),
	}

	go func() {
		slog.Info("Starting pprof server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Pprof server error", slog.Any("error", err))
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down pprof server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		slog.Error("Error shutting down pprof server", slog.Any("error", err))
	}
}

func pprofPort() int {
	envPort := os.Getenv("PPROF_PORT")
	if envPort == "" {
		return DefaultPprofPort
	}

	if envPort == "0" || envPort == "false" || envPort == "off" {
		return 0
	}

	port, err := strconv.Atoi(envPort)
	if err != nil {
		slog.Warn("Invalid PPROF_PORT value, using default", slog.String("value", envPort), slog.Int("default", DefaultPprofPort))
		return DefaultPprofPort
	}

	return port
}
