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

package toggles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/flagrunner/internal/flagcache"
	"github.com/cardinalhq/flagrunner/internal/flags"
	"github.com/cardinalhq/flagrunner/internal/flagstore"
	"github.com/cardinalhq/flagrunner/internal/relay"
)

// countingStore wraps the in-memory store with per-flag read counters and
// switchable failure modes.
type countingStore struct {
	inner flagstore.Store

	mu       sync.Mutex
	gets     map[string]int
	allCalls int
	failGets bool
	failPuts bool
	hangGets bool
}

var _ flagstore.Store = (*countingStore)(nil)

func newCountingStore() *countingStore {
	return &countingStore{
		inner: flagstore.NewMemoryStore(),
		gets:  make(map[string]int),
	}
}

func (s *countingStore) Get(ctx context.Context, name string) (flags.Flag, error) {
	s.mu.Lock()
	s.gets[name]++
	failing := s.failGets
	hanging := s.hangGets
	s.mu.Unlock()

	if hanging {
		<-ctx.Done()
		return flags.Flag{}, ctx.Err()
	}
	if failing {
		return flags.Flag{}, errors.New("store unavailable")
	}
	return s.inner.Get(ctx, name)
}

func (s *countingStore) Put(ctx context.Context, name string, gate flags.Gate) error {
	s.mu.Lock()
	failing := s.failPuts
	s.mu.Unlock()
	if failing {
		return errors.New("store unavailable")
	}
	return s.inner.Put(ctx, name, gate)
}

func (s *countingStore) Delete(ctx context.Context, name string, gate flags.Gate) error {
	return s.inner.Delete(ctx, name, gate)
}

func (s *countingStore) Clear(ctx context.Context, name string) error {
	return s.inner.Clear(ctx, name)
}

func (s *countingStore) All(ctx context.Context) ([]flags.Flag, error) {
	s.mu.Lock()
	s.allCalls++
	s.mu.Unlock()
	return s.inner.All(ctx)
}

func (s *countingStore) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }
func (s *countingStore) Close() error                   { return s.inner.Close() }

func (s *countingStore) getCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[name]
}

func (s *countingStore) setFailGets(v bool) {
	s.mu.Lock()
	s.failGets = v
	s.mu.Unlock()
}

func (s *countingStore) setFailPuts(v bool) {
	s.mu.Lock()
	s.failPuts = v
	s.mu.Unlock()
}

// loopbackBus delivers every published message synchronously to every
// subscriber, own publishes included, like a broker with zero latency.
type loopbackBus struct {
	mu        sync.Mutex
	handlers  []relay.Handler
	published []relay.Message
}

var _ relay.Bus = (*loopbackBus)(nil)

func (b *loopbackBus) Publish(_ context.Context, msg relay.Message) error {
	b.mu.Lock()
	b.published = append(b.published, msg)
	handlers := make([]relay.Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (b *loopbackBus) Subscribe(ctx context.Context, handler relay.Handler) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (b *loopbackBus) Close() error { return nil }

func (b *loopbackBus) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

func (b *loopbackBus) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

// newCachedNode wires a cache subscribed to bus plus a facade on top,
// simulating one fleet node.
func newCachedNode(t *testing.T, store flagstore.Store, bus *loopbackBus, nodeID string, ttl time.Duration) *Facade {
	t.Helper()

	cache := flagcache.New(flagcache.Config{Enabled: true, TTL: ttl}, nodeID)
	t.Cleanup(cache.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	before := bus.subscriberCount()
	go func() { _ = cache.SubscribeInvalidations(ctx, bus) }()
	require.Eventually(t, func() bool {
		return bus.subscriberCount() == before+1
	}, time.Second, 5*time.Millisecond)

	return New(store, cache, bus, nodeID, 2*time.Second)
}

func enableAll() flags.Gate {
	return flags.Gate{Kind: flags.GateBoolean, Enabled: true}
}

func TestLookupUnknownFlagReturnsDefault(t *testing.T) {
	facade := New(newCountingStore(), nil, nil, "node-a", 0)

	flag, err := facade.LookupStrict(context.Background(), "never-written")
	require.NoError(t, err)
	assert.True(t, flag.IsDefault())
	assert.Equal(t, "never-written", flag.Name)

	flag = facade.Lookup(context.Background(), "never-written")
	assert.True(t, flag.IsDefault())
}

func TestReadYourOwnWrite(t *testing.T) {
	t.Run("caching disabled", func(t *testing.T) {
		facade := New(newCountingStore(), nil, nil, "node-a", 0)

		require.NoError(t, facade.Write(context.Background(), "dark-mode", enableAll()))
		flag := facade.Lookup(context.Background(), "dark-mode")
		require.Len(t, flag.Gates, 1)
		assert.True(t, flag.Gates[0].Enabled)
	})

	t.Run("caching enabled", func(t *testing.T) {
		store := newCountingStore()
		bus := &loopbackBus{}
		facade := newCachedNode(t, store, bus, "node-a", time.Minute)

		// Prime the cache with the pre-write state.
		flag := facade.Lookup(context.Background(), "dark-mode")
		assert.True(t, flag.IsDefault())

		require.NoError(t, facade.Write(context.Background(), "dark-mode", enableAll()))
		flag = facade.Lookup(context.Background(), "dark-mode")
		require.Len(t, flag.Gates, 1)
		assert.True(t, flag.Gates[0].Enabled)
	})
}

func TestLookupFailClosed(t *testing.T) {
	store := newCountingStore()
	require.NoError(t, store.Put(context.Background(), "dark-mode", enableAll()))
	store.setFailGets(true)

	facade := New(store, nil, nil, "node-a", 0)

	_, err := facade.LookupStrict(context.Background(), "dark-mode")
	require.Error(t, err)

	flag := facade.Lookup(context.Background(), "dark-mode")
	assert.True(t, flag.IsDefault(), "outage must degrade to the disabled default")
}

func TestLookupTimeoutIsBounded(t *testing.T) {
	store := newCountingStore()
	store.hangGets = true

	facade := New(store, nil, nil, "node-a", 50*time.Millisecond)

	start := time.Now()
	_, err := facade.LookupStrict(context.Background(), "dark-mode")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWriteFailureHasNoPartialEffects(t *testing.T) {
	store := newCountingStore()
	require.NoError(t, store.Put(context.Background(), "dark-mode", enableAll()))

	bus := &loopbackBus{}
	facade := newCachedNode(t, store, bus, "node-a", time.Minute)

	// Prime the cache.
	flag := facade.Lookup(context.Background(), "dark-mode")
	require.Len(t, flag.Gates, 1)
	fetchesBefore := store.getCount("dark-mode")

	store.setFailPuts(true)
	err := facade.Write(context.Background(), "dark-mode", flags.Gate{Kind: flags.GateBoolean, Enabled: false})
	require.Error(t, err)

	// The cached entry must survive and nothing may have been published.
	flag = facade.Lookup(context.Background(), "dark-mode")
	require.Len(t, flag.Gates, 1)
	assert.True(t, flag.Gates[0].Enabled)
	assert.Equal(t, fetchesBefore, store.getCount("dark-mode"))
	assert.Equal(t, 0, bus.publishedCount())
}

func TestWriteIgnoresOwnEcho(t *testing.T) {
	store := newCountingStore()
	bus := &loopbackBus{}
	facade := newCachedNode(t, store, bus, "node-a", time.Minute)

	require.NoError(t, facade.Write(context.Background(), "dark-mode", enableAll()))
	require.Eventually(t, func() bool {
		return bus.publishedCount() == 1
	}, time.Second, 5*time.Millisecond, "write must publish exactly one invalidation")

	// The echo carried our own origin, so it must not have invalidated
	// the entry the next lookup caches.
	facade.Lookup(context.Background(), "dark-mode")
	fetches := store.getCount("dark-mode")
	facade.Lookup(context.Background(), "dark-mode")
	assert.Equal(t, fetches, store.getCount("dark-mode"), "echo caused a redundant refetch")
}

func TestCrossNodeInvalidation(t *testing.T) {
	store := newCountingStore()
	bus := &loopbackBus{}
	nodeA := newCachedNode(t, store, bus, "node-a", time.Hour)
	nodeB := newCachedNode(t, store, bus, "node-b", time.Hour)

	// B caches the pre-write state under a TTL far too long to save it.
	flag := nodeB.Lookup(context.Background(), "dark-mode")
	assert.True(t, flag.IsDefault())

	require.NoError(t, nodeA.Write(context.Background(), "dark-mode", enableAll()))
	require.Eventually(t, func() bool {
		return bus.publishedCount() == 1
	}, time.Second, 5*time.Millisecond)

	flag = nodeB.Lookup(context.Background(), "dark-mode")
	require.Len(t, flag.Gates, 1, "invalidation must reach the other node")
	assert.True(t, flag.Gates[0].Enabled)
}

func TestTTLBackstopWithoutNotifications(t *testing.T) {
	store := newCountingStore()

	cache := flagcache.New(flagcache.Config{Enabled: true, TTL: 50 * time.Millisecond}, "node-a")
	t.Cleanup(cache.Stop)
	facade := New(store, cache, nil, "node-a", 0)

	require.NoError(t, facade.Write(context.Background(), "dark-mode", enableAll()))
	flag := facade.Lookup(context.Background(), "dark-mode")
	require.Len(t, flag.Gates, 1)
	assert.True(t, flag.Gates[0].Enabled)

	// Another process flips the flag behind this node's back.
	require.NoError(t, store.Put(context.Background(), "dark-mode", flags.Gate{Kind: flags.GateBoolean, Enabled: false}))

	// Still cached for the moment.
	flag = facade.Lookup(context.Background(), "dark-mode")
	assert.True(t, flag.Gates[0].Enabled)

	time.Sleep(150 * time.Millisecond)
	flag = facade.Lookup(context.Background(), "dark-mode")
	require.Len(t, flag.Gates, 1)
	assert.False(t, flag.Gates[0].Enabled, "entry outlived its TTL")
}

func TestFlushCacheEmptiesAndBroadcasts(t *testing.T) {
	store := newCountingStore()
	bus := &loopbackBus{}
	facade := newCachedNode(t, store, bus, "node-a", time.Hour)

	facade.Lookup(context.Background(), "dark-mode")
	fetches := store.getCount("dark-mode")

	facade.FlushCache()
	require.Eventually(t, func() bool {
		return bus.publishedCount() == 1
	}, time.Second, 5*time.Millisecond)
	b := bus.published[0]
	assert.True(t, b.All)

	facade.Lookup(context.Background(), "dark-mode")
	assert.Equal(t, fetches+1, store.getCount("dark-mode"), "flush must force a refetch")
}

func TestAllBypassesCache(t *testing.T) {
	store := newCountingStore()
	require.NoError(t, store.Put(context.Background(), "a", enableAll()))
	require.NoError(t, store.Put(context.Background(), "b", enableAll()))

	bus := &loopbackBus{}
	facade := newCachedNode(t, store, bus, "node-a", time.Hour)

	for range 3 {
		list, err := facade.All(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 2)
	}
	assert.Equal(t, 3, store.allCalls)
}

func TestRemoveLastGateRemovesFlag(t *testing.T) {
	facade := New(newCountingStore(), nil, nil, "node-a", 0)

	require.NoError(t, facade.Write(context.Background(), "dark-mode", enableAll()))
	require.NoError(t, facade.Remove(context.Background(), "dark-mode", flags.Gate{Kind: flags.GateBoolean}))

	flag, err := facade.LookupStrict(context.Background(), "dark-mode")
	require.NoError(t, err)
	assert.True(t, flag.IsDefault())
}

func TestClearRemovesWholeFlag(t *testing.T) {
	facade := New(newCountingStore(), nil, nil, "node-a", 0)

	require.NoError(t, facade.Write(context.Background(), "dark-mode", enableAll()))
	require.NoError(t, facade.Write(context.Background(), "dark-mode", flags.Gate{Kind: flags.GateActor, Target: "user:1", Enabled: true}))
	require.NoError(t, facade.Clear(context.Background(), "dark-mode"))

	flag := facade.Lookup(context.Background(), "dark-mode")
	assert.True(t, flag.IsDefault())
}

func TestWriteValidation(t *testing.T) {
	store := newCountingStore()
	facade := New(store, nil, nil, "node-a", 0)

	err := facade.Write(context.Background(), "", enableAll())
	assert.Error(t, err)

	err = facade.Write(context.Background(), "dark-mode", flags.Gate{Kind: "mystery"})
	assert.Error(t, err)

	err = facade.Write(context.Background(), "dark-mode", flags.Gate{Kind: flags.GatePercentageOfTime, Percentage: 150})
	assert.Error(t, err)

	list, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "rejected writes must not reach the store")
}

func TestCapabilities(t *testing.T) {
	store := newCountingStore()
	cache := flagcache.New(flagcache.Config{Enabled: true, TTL: time.Minute}, "node-a")
	t.Cleanup(cache.Stop)
	bus := &loopbackBus{}

	tests := []struct {
		name          string
		facade        *Facade
		caching       bool
		notifications bool
	}{
		{"bare", New(store, nil, nil, "n", 0), false, false},
		{"cache only", New(store, cache, nil, "n", 0), true, false},
		{"bus without cache", New(store, nil, bus, "n", 0), false, false},
		{"cache and bus", New(store, cache, bus, "n", 0), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.caching, tt.facade.CachingEnabled())
			assert.Equal(t, tt.notifications, tt.facade.NotificationsEnabled())
		})
	}
}
