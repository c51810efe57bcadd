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

// Package flagstore defines the persistent source of truth for flag state
// and its backend adapters. Adapters are dumb CRUD: no caching, no retries,
// failures surfaced to the caller unmodified.
package flagstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardinalhq/flagrunner/flagdb"
	"github.com/cardinalhq/flagrunner/internal/flags"
)

// ErrFlagNotFound is returned by Get for a flag that has never been written
// or whose last gate has been removed. It is a normal outcome, not a fault.
var ErrFlagNotFound = errors.New("flag not found")

// Store is the persistent source of truth for flag state.
//
// Put and Delete address single gates; a flag whose last gate is deleted is
// removed entirely, so a later Get returns ErrFlagNotFound. All operations
// are safe for concurrent use.
type Store interface {
	// Get returns the stored state for name, or ErrFlagNotFound.
	Get(ctx context.Context, name string) (flags.Flag, error)
	// Put upserts one gate, replacing any stored gate with the same key.
	Put(ctx context.Context, name string, gate flags.Gate) error
	// Delete removes one gate. Deleting from an absent flag is a no-op.
	Delete(ctx context.Context, name string, gate flags.Gate) error
	// Clear removes a flag and all of its gates.
	Clear(ctx context.Context, name string) error
	// All returns every stored flag ordered by name.
	All(ctx context.Context) ([]flags.Flag, error)
	// Ping probes backend reachability.
	Ping(ctx context.Context) error
	Close() error
}

// Setup opens the store backend selected by cfg.
func Setup(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendPostgres:
		db, err := flagdb.FlagDBStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open flagdb: %w", err)
		}
		slog.Info("Using postgres flag store")
		return NewPostgresStore(db), nil
	case BackendRedis:
		slog.Info("Using redis flag store", slog.String("addr", cfg.Redis.Addr))
		return NewRedisStore(cfg.Redis), nil
	case BackendMemory:
		slog.Info("Using in-memory flag store")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
