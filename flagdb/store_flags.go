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

package flagdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardinalhq/flagrunner/internal/flags"
)

// GetFlag returns the stored state for name, or pgx.ErrNoRows if the flag
// has never been written.
func (store *Store) GetFlag(ctx context.Context, name string) (flags.Flag, error) {
	row, err := store.GetFeatureFlag(ctx, name)
	if err != nil {
		return flags.Flag{}, err
	}
	return row.Flag()
}

// ListFlags returns all stored flags ordered by name.
func (store *Store) ListFlags(ctx context.Context) ([]flags.Flag, error) {
	rows, err := store.ListFeatureFlags(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]flags.Flag, 0, len(rows))
	for _, row := range rows {
		f, err := row.Flag()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// UpsertGate writes one gate into a flag's gate array, replacing any gate
// with the same key. The row is locked for the read-modify-write so a flag
// snapshot is never half-applied.
func (store *Store) UpsertGate(ctx context.Context, name string, gate flags.Gate) error {
	return store.execTx(ctx, func(s *Store) error {
		row, err := s.GetFeatureFlagForUpdate(ctx, name)
		if errors.Is(err, pgx.ErrNoRows) {
			flag := flags.Default(name).WithGate(gate)
			gates, err := encodeGates(flag.Gates)
			if err != nil {
				return err
			}
			return s.UpsertFeatureFlag(ctx, UpsertFeatureFlagParams{
				ID:    uuid.New(),
				Name:  name,
				Gates: gates,
			})
		}
		if err != nil {
			return fmt.Errorf("failed to lock flag %q: %w", name, err)
		}

		flag, err := row.Flag()
		if err != nil {
			return err
		}
		gates, err := encodeGates(flag.WithGate(gate).Gates)
		if err != nil {
			return err
		}
		return s.UpdateFeatureFlagGates(ctx, UpdateFeatureFlagGatesParams{
			Name:  name,
			Gates: gates,
		})
	})
}

// RemoveGate deletes one gate from a flag's gate array. Removing the last
// gate removes the row, so reads see the flag as never written. Removing
// from an absent flag is a no-op.
func (store *Store) RemoveGate(ctx context.Context, name string, gate flags.Gate) error {
	return store.execTx(ctx, func(s *Store) error {
		row, err := s.GetFeatureFlagForUpdate(ctx, name)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock flag %q: %w", name, err)
		}

		flag, err := row.Flag()
		if err != nil {
			return err
		}
		flag = flag.WithoutGate(gate)
		if flag.IsDefault() {
			return s.DeleteFeatureFlag(ctx, name)
		}
		gates, err := encodeGates(flag.Gates)
		if err != nil {
			return err
		}
		return s.UpdateFeatureFlagGates(ctx, UpdateFeatureFlagGatesParams{
			Name:  name,
			Gates: gates,
		})
	})
}

// ClearFlag removes a flag and all of its gates.
func (store *Store) ClearFlag(ctx context.Context, name string) error {
	return store.DeleteFeatureFlag(ctx, name)
}
