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

package flagapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cardinalhq/flagrunner/internal/flags"
	"github.com/cardinalhq/flagrunner/internal/logctx"
)

const maxBodyBytes = 64 * 1024

type errorResponse struct {
	Error string `json:"error"`
}

type capabilitiesResponse struct {
	Caching       bool `json:"caching"`
	Notifications bool `json:"notifications"`
}

func (s *Server) listFlagsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.facade.All(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "failed to list flags")
		return
	}
	if list == nil {
		list = []flags.Flag{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getFlagHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if r.URL.Query().Get("strict") == "true" {
		flag, err := s.facade.LookupStrict(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "flag store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, flag)
		return
	}

	writeJSON(w, http.StatusOK, s.facade.Lookup(r.Context(), name))
}

func (s *Server) putGateHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx, span := s.tracer.Start(r.Context(), "flagapi.putGate")
	defer span.End()
	span.SetAttributes(attribute.String("flag", name))

	gate, ok := decodeGate(w, r)
	if !ok {
		return
	}
	if err := flags.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := gate.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ll := logctx.FromContext(ctx)
	if err := s.facade.Write(ctx, name, gate); err != nil {
		ll.Error("Flag gate write failed",
			slog.String("flag", name),
			slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "flag store unavailable")
		return
	}
	ll.Info("Flag gate written",
		slog.String("flag", name),
		slog.String("gate", gate.Key()))

	flag, err := s.facade.LookupStrict(ctx, name)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "gate written but state could not be read back")
		return
	}
	writeJSON(w, http.StatusOK, flag)
}

func (s *Server) deleteGateHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx, span := s.tracer.Start(r.Context(), "flagapi.deleteGate")
	defer span.End()
	span.SetAttributes(attribute.String("flag", name))

	gate, ok := decodeGate(w, r)
	if !ok {
		return
	}
	if err := flags.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := gate.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ll := logctx.FromContext(ctx)
	if err := s.facade.Remove(ctx, name, gate); err != nil {
		ll.Error("Flag gate delete failed",
			slog.String("flag", name),
			slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "flag store unavailable")
		return
	}
	ll.Info("Flag gate deleted",
		slog.String("flag", name),
		slog.String("gate", gate.Key()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearFlagHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx, span := s.tracer.Start(r.Context(), "flagapi.clearFlag")
	defer span.End()
	span.SetAttributes(attribute.String("flag", name))

	if err := flags.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ll := logctx.FromContext(ctx)
	if err := s.facade.Clear(ctx, name); err != nil {
		ll.Error("Flag clear failed",
			slog.String("flag", name),
			slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "flag store unavailable")
		return
	}
	ll.Info("Flag cleared", slog.String("flag", name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) flushCacheHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "flagapi.flushCache")
	defer span.End()

	s.facade.FlushCache()
	logctx.FromContext(ctx).Info("Cache flush requested")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) capabilitiesHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, capabilitiesResponse{
		Caching:       s.facade.CachingEnabled(),
		Notifications: s.facade.NotificationsEnabled(),
	})
}

func decodeGate(w http.ResponseWriter, r *http.Request) (flags.Gate, bool) {
	var gate flags.Gate
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&gate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid gate body")
		return flags.Gate{}, false
	}
	return gate, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode API response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
