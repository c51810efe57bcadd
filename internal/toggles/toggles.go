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

// Package toggles is the single entry point for flag state. It composes
// the persistent store, the optional per-node cache, and the optional
// invalidation relay into one facade with two promises: a successful
// write is immediately visible to the writing node, and a lookup under
// store outage degrades to the disabled default instead of failing.
package toggles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardinalhq/flagrunner/internal/flagcache"
	"github.com/cardinalhq/flagrunner/internal/flags"
	"github.com/cardinalhq/flagrunner/internal/flagstore"
	"github.com/cardinalhq/flagrunner/internal/relay"
)

const (
	defaultStoreTimeout = 2 * time.Second
	publishTimeout      = 5 * time.Second
)

// Facade coordinates flag reads and writes across the store, the cache,
// and the relay.
type Facade struct {
	store        flagstore.Store
	cache        *flagcache.Cache
	bus          relay.Bus
	nodeID       string
	storeTimeout time.Duration
}

// New creates a Facade. cache may be nil to disable caching, and bus may
// be nil to disable change notifications. Notifications without a cache
// would have nothing to invalidate, so they require both.
func New(store flagstore.Store, cache *flagcache.Cache, bus relay.Bus, nodeID string, storeTimeout time.Duration) *Facade {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &Facade{
		store:        store,
		cache:        cache,
		bus:          bus,
		nodeID:       nodeID,
		storeTimeout: storeTimeout,
	}
}

// CachingEnabled reports whether lookups are served through the cache.
func (f *Facade) CachingEnabled() bool {
	return f.cache != nil
}

// NotificationsEnabled reports whether writes broadcast invalidations to
// other nodes.
func (f *Facade) NotificationsEnabled() bool {
	return f.cache != nil && f.bus != nil
}

// Lookup returns the state of the named flag, fail closed: a store
// failure or timeout yields the disabled default rather than an error.
func (f *Facade) Lookup(ctx context.Context, name string) flags.Flag {
	flag, err := f.LookupStrict(ctx, name)
	if err != nil {
		recordFailClosed(ctx)
		slog.Warn("Serving disabled default for flag lookup",
			slog.String("flag", name),
			slog.Any("error", err))
		return flags.Default(name)
	}
	return flag
}

// LookupStrict returns the state of the named flag or the store error
// that prevented reading it. An unknown flag is not an error: it comes
// back as the disabled default.
func (f *Facade) LookupStrict(ctx context.Context, name string) (flags.Flag, error) {
	recordLookup(ctx)
	if f.cache != nil {
		return f.cache.Fetch(ctx, name, f.fetchFlag)
	}
	return f.fetchFlag(ctx, name)
}

// fetchFlag reads one flag from the store under the store timeout,
// translating not-found into the disabled default.
func (f *Facade) fetchFlag(ctx context.Context, name string) (flags.Flag, error) {
	sctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	flag, err := f.store.Get(sctx, name)
	if errors.Is(err, flagstore.ErrFlagNotFound) {
		return flags.Default(name), nil
	}
	if err != nil {
		return flags.Flag{}, fmt.Errorf("failed to look up flag %q: %w", name, err)
	}
	return flag, nil
}

// Write upserts one gate on the named flag. On store failure nothing else
// happens: the cache keeps its entry and no invalidation is published.
func (f *Facade) Write(ctx context.Context, name string, gate flags.Gate) error {
	if err := flags.ValidateName(name); err != nil {
		return err
	}
	if err := gate.Validate(); err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()
	if err := f.store.Put(sctx, name, gate); err != nil {
		recordWrite(ctx, "put", err)
		return fmt.Errorf("failed to write flag %q: %w", name, err)
	}
	recordWrite(ctx, "put", nil)

	f.afterMutation(name)
	return nil
}

// Remove deletes one gate from the named flag. Removing the last gate
// removes the flag.
func (f *Facade) Remove(ctx context.Context, name string, gate flags.Gate) error {
	if err := flags.ValidateName(name); err != nil {
		return err
	}
	if err := gate.Validate(); err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()
	if err := f.store.Delete(sctx, name, gate); err != nil {
		recordWrite(ctx, "delete", err)
		return fmt.Errorf("failed to remove gate from flag %q: %w", name, err)
	}
	recordWrite(ctx, "delete", nil)

	f.afterMutation(name)
	return nil
}

// Clear deletes the named flag and every gate on it.
func (f *Facade) Clear(ctx context.Context, name string) error {
	if err := flags.ValidateName(name); err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()
	if err := f.store.Clear(sctx, name); err != nil {
		recordWrite(ctx, "clear", err)
		return fmt.Errorf("failed to clear flag %q: %w", name, err)
	}
	recordWrite(ctx, "clear", nil)

	f.afterMutation(name)
	return nil
}

// All returns every stored flag ordered by name, straight from the store.
// Bulk reads are never cached.
func (f *Facade) All(ctx context.Context) ([]flags.Flag, error) {
	sctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	list, err := f.store.All(sctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return list, nil
}

// FlushCache empties the local cache and tells every other node to do the
// same.
func (f *Facade) FlushCache() {
	if f.cache != nil {
		f.cache.InvalidateAll()
	}
	f.publish(relay.NewFlushAllMessage(f.nodeID))
}

// afterMutation applies the writer's own invalidation synchronously so
// the next local lookup sees the new state, then broadcasts to the fleet.
func (f *Facade) afterMutation(name string) {
	if f.cache != nil {
		f.cache.Invalidate(name)
	}
	f.publish(relay.NewFlagMessage(name, f.nodeID))
}

// publish broadcasts an invalidation without blocking the caller. A
// publish failure is logged and dropped: remote nodes fall back to their
// cache TTL.
func (f *Facade) publish(msg relay.Message) {
	if !f.NotificationsEnabled() {
		return
	}
	go func() {
		// Detached from the request context: the write already
		// succeeded, and canceling it must not lose the broadcast.
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := f.bus.Publish(ctx, msg); err != nil {
			slog.Warn("Failed to publish invalidation",
				slog.String("flag", msg.FlagName),
				slog.Bool("all", msg.All),
				slog.Any("error", err))
		}
	}()
}
