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

package flagstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cardinalhq/flagrunner/internal/flags"
)

// MemoryStore keeps flag state in process memory. It is the default backend
// for single-node development and the workhorse for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	flags map[string]flags.Flag
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flags: make(map[string]flags.Flag),
	}
}

func (s *MemoryStore) Get(_ context.Context, name string) (flags.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flags[name]
	if !ok {
		return flags.Flag{}, ErrFlagNotFound
	}
	return f.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, name string, gate flags.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flags[name]
	if !ok {
		f = flags.Default(name)
	}
	s.flags[name] = f.WithGate(gate)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string, gate flags.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flags[name]
	if !ok {
		return nil
	}
	f = f.WithoutGate(gate)
	if f.IsDefault() {
		delete(s.flags, name)
		return nil
	}
	s.flags[name] = f
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, name)
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]flags.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]flags.Flag, 0, len(s.flags))
	for _, f := range s.flags {
		out = append(out, f.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
