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

	"github.com/google/uuid"
)

const getFeatureFlag = `
SELECT id, name, gates, created_at, updated_at
FROM feature_flags
WHERE name = $1`

// GetFeatureFlag returns the row for name, or pgx.ErrNoRows.
func (q *Queries) GetFeatureFlag(ctx context.Context, name string) (FeatureFlag, error) {
	row := q.db.QueryRow(ctx, getFeatureFlag, name)
	var f FeatureFlag
	err := row.Scan(&f.ID, &f.Name, &f.Gates, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

const getFeatureFlagForUpdate = `
SELECT id, name, gates, created_at, updated_at
FROM feature_flags
WHERE name = $1
FOR UPDATE`

// GetFeatureFlagForUpdate locks the row for a read-modify-write inside a
// transaction.
func (q *Queries) GetFeatureFlagForUpdate(ctx context.Context, name string) (FeatureFlag, error) {
	row := q.db.QueryRow(ctx, getFeatureFlagForUpdate, name)
	var f FeatureFlag
	err := row.Scan(&f.ID, &f.Name, &f.Gates, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

const listFeatureFlags = `
SELECT id, name, gates, created_at, updated_at
FROM feature_flags
ORDER BY name`

// ListFeatureFlags returns all rows ordered by flag name.
func (q *Queries) ListFeatureFlags(ctx context.Context) ([]FeatureFlag, error) {
	rows, err := q.db.Query(ctx, listFeatureFlags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FeatureFlag
	for rows.Next() {
		var f FeatureFlag
		if err := rows.Scan(&f.ID, &f.Name, &f.Gates, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

const upsertFeatureFlag = `
INSERT INTO feature_flags (id, name, gates)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET gates = EXCLUDED.gates, updated_at = now()`

type UpsertFeatureFlagParams struct {
	ID    uuid.UUID
	Name  string
	Gates []byte
}

// UpsertFeatureFlag writes the full gate array for a flag, creating the row
// if needed. Last write wins on conflict.
func (q *Queries) UpsertFeatureFlag(ctx context.Context, arg UpsertFeatureFlagParams) error {
	_, err := q.db.Exec(ctx, upsertFeatureFlag, arg.ID, arg.Name, arg.Gates)
	return err
}

const updateFeatureFlagGates = `
UPDATE feature_flags
SET gates = $2, updated_at = now()
WHERE name = $1`

type UpdateFeatureFlagGatesParams struct {
	Name  string
	Gates []byte
}

// UpdateFeatureFlagGates replaces the gate array of an existing row.
func (q *Queries) UpdateFeatureFlagGates(ctx context.Context, arg UpdateFeatureFlagGatesParams) error {
	_, err := q.db.Exec(ctx, updateFeatureFlagGates, arg.Name, arg.Gates)
	return err
}

const deleteFeatureFlag = `
DELETE FROM feature_flags
WHERE name = $1`

// DeleteFeatureFlag removes the row for name if present.
func (q *Queries) DeleteFeatureFlag(ctx context.Context, name string) error {
	_, err := q.db.Exec(ctx, deleteFeatureFlag, name)
	return err
}
