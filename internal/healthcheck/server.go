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

// Package healthcheck serves the liveness and readiness probes. Readiness
// is the base ready flag plus named conditions, one per backing
// dependency (persistent store, relay), so a store outage flips /readyz
// without restarting the process.
package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type Status int32

const (
	StatusStarting Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Response is the probe reply body. Conditions appears on /readyz only,
// listing each named readiness gate and its current state.
type Response struct {
	Healthy    bool            `json:"healthy"`
	Conditions map[string]bool `json:"conditions,omitempty"`
}

// Config holds the health check server configuration.
type Config struct {
	Port int `mapstructure:"port"`
}

// DefaultConfig returns the default health check configuration.
func DefaultConfig() Config {
	return Config{Port: 8090}
}

type Server struct {
	port       int
	status     atomic.Int32
	ready      atomic.Bool
	conditions sync.Map // map[string]bool — named readiness conditions
	server     *http.Server
}

func NewServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultConfig().Port
	}
	return &Server{port: cfg.Port}
}

func (s *Server) SetStatus(status Status) {
	s.status.Store(int32(status))
	slog.Debug("Health check status updated", slog.String("status", status.String()))
}

func (s *Server) GetStatus() Status {
	return Status(s.status.Load())
}

// SetReady sets the base readiness flag. The server reports ready only
// when this flag and every named condition are true.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	slog.Debug("Ready status updated", slog.Bool("ready", ready))
}

// SetReadyCondition sets one named readiness condition, creating it if
// needed. Conditions let independent units gate readiness without
// knowing about each other.
func (s *Server) SetReadyCondition(name string, ready bool) {
	s.conditions.Store(name, ready)
	slog.Debug("Ready condition updated", slog.String("condition", name), slog.Bool("ready", ready))
}

// ClearReadyCondition removes a named readiness condition entirely.
func (s *Server) ClearReadyCondition(name string) {
	s.conditions.Delete(name)
}

func (s *Server) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	ready := true
	s.conditions.Range(func(_, value any) bool {
		if !value.(bool) {
			ready = false
			return false
		}
		return true
	})
	return ready
}

// Run serves the probe endpoints until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/readyz", s.readyzHandler)
	mux.HandleFunc("/livez", s.livezHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	s.SetStatus(StatusStarting)
	slog.Info("Starting health check server", slog.Int("port", s.port))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health check server error", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	return s.Stop()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	slog.Info("Stopping health check server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, s.GetStatus() == StatusHealthy, nil)
}

func (s *Server) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	conditions := make(map[string]bool)
	s.conditions.Range(func(key, value any) bool {
		conditions[key.(string)] = value.(bool)
		return true
	})
	writeProbe(w, s.IsReady(), conditions)
}

func (s *Server) livezHandler(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, s.GetStatus() != StatusUnhealthy, nil)
}

func writeProbe(w http.ResponseWriter, ok bool, conditions map[string]bool) {
	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(Response{Healthy: ok, Conditions: conditions}); err != nil {
		slog.Error("Failed to encode health check response", slog.Any("error", err))
	}
}
