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

// Package flagcache is the per-node TTL cache in front of the persistent
// flag store. Concurrent misses for the same flag are coalesced into one
// store fetch, and fetch failures are never cached, so a flaky store can
// be retried immediately. Entries disappear on TTL expiry or when an
// invalidation arrives from another node.
package flagcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/cardinalhq/flagrunner/internal/flags"
	"github.com/cardinalhq/flagrunner/internal/relay"
)

// Fetcher loads one flag from the persistent store on a cache miss. A nil
// error caches the returned flag for the TTL; an error caches nothing.
type Fetcher func(ctx context.Context, name string) (flags.Flag, error)

// Cache is a TTL-bounded cache of flags keyed by name.
type Cache struct {
	ttl    time.Duration
	nodeID string
	cache  *ttlcache.Cache[string, flags.Flag]
	group  singleflight.Group
}

// New creates a started Cache. nodeID is this node's identity, used to
// drop invalidation messages the node itself published.
func New(cfg Config, nodeID string) *Cache {
	c := &Cache{
		ttl:    cfg.TTL,
		nodeID: nodeID,
		cache: ttlcache.New(
			ttlcache.WithTTL[string, flags.Flag](cfg.TTL),
			ttlcache.WithDisableTouchOnHit[string, flags.Flag](),
		),
	}
	go c.cache.Start()
	return c
}

// Get returns a copy of the cached flag for name, if present and
// unexpired.
func (c *Cache) Get(name string) (flags.Flag, bool) {
	item := c.cache.Get(name)
	if item == nil {
		recordLookup(context.Background(), false)
		return flags.Flag{}, false
	}
	recordLookup(context.Background(), true)
	return item.Value().Clone(), true
}

// Set stores a flag under its name for the configured TTL.
func (c *Cache) Set(flag flags.Flag) {
	c.cache.Set(flag.Name, flag.Clone(), ttlcache.DefaultTTL)
}

// Fetch returns the cached flag for name, or loads it through fetch.
// Concurrent callers for the same name share a single fetch. A fetch
// error is returned to every waiter and leaves the cache untouched.
func (c *Cache) Fetch(ctx context.Context, name string, fetch Fetcher) (flags.Flag, error) {
	if flag, ok := c.Get(name); ok {
		return flag, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		// Recheck under the flight: a concurrent Set or an earlier
		// flight may have filled the entry already.
		if item := c.cache.Get(name); item != nil {
			return item.Value(), nil
		}
		flag, err := fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		c.cache.Set(name, flag.Clone(), ttlcache.DefaultTTL)
		return flag, nil
	})
	if err != nil {
		return flags.Flag{}, err
	}
	// Waiters share the flight result, so hand each caller its own copy.
	return v.(flags.Flag).Clone(), nil
}

// Invalidate removes one flag from the cache.
func (c *Cache) Invalidate(name string) {
	c.cache.Delete(name)
	recordInvalidation(context.Background(), "flag")
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.cache.DeleteAll()
	recordInvalidation(context.Background(), "all")
}

// Len returns the number of live cache entries.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Stop halts the background expiry loop.
func (c *Cache) Stop() {
	c.cache.Stop()
}

// HandleMessage applies one relay message to the cache. Messages this
// node published are dropped so a writer does not re-invalidate the entry
// it just refreshed.
func (c *Cache) HandleMessage(msg relay.Message) {
	if err := msg.Validate(); err != nil {
		slog.Warn("Dropping invalid invalidation message", slog.Any("error", err))
		return
	}
	if msg.Origin == c.nodeID {
		recordEchoDropped(context.Background())
		return
	}
	if msg.All {
		c.InvalidateAll()
		return
	}
	c.Invalidate(msg.FlagName)
}

// SubscribeInvalidations empties the cache and then applies relay
// messages to it until ctx is canceled or the bus fails. The flush
// covers the window where messages were missed: after any gap, start
// cold rather than stale.
func (c *Cache) SubscribeInvalidations(ctx context.Context, bus relay.Bus) error {
	c.InvalidateAll()
	return bus.Subscribe(ctx, c.HandleMessage)
}
