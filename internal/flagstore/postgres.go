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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cardinalhq/flagrunner/flagdb"
	"github.com/cardinalhq/flagrunner/internal/flags"
)

// PostgresStore adapts the relational flagdb layer to the Store interface.
// Gate read-modify-writes run inside row-locked transactions there, so a
// stored flag snapshot is never torn.
type PostgresStore struct {
	db *flagdb.Store
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *flagdb.Store) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, name string) (flags.Flag, error) {
	f, err := s.db.GetFlag(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return flags.Flag{}, ErrFlagNotFound
	}
	if err != nil {
		return flags.Flag{}, fmt.Errorf("failed to get flag %q: %w", name, err)
	}
	return f, nil
}

func (s *PostgresStore) Put(ctx context.Context, name string, gate flags.Gate) error {
	if err := s.db.UpsertGate(ctx, name, gate); err != nil {
		return fmt.Errorf("failed to put gate for flag %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, name string, gate flags.Gate) error {
	if err := s.db.RemoveGate(ctx, name, gate); err != nil {
		return fmt.Errorf("failed to delete gate for flag %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, name string) error {
	if err := s.db.ClearFlag(ctx, name); err != nil {
		return fmt.Errorf("failed to clear flag %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]flags.Flag, error) {
	out, err := s.db.ListFlags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
