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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/flagrunner/internal/flags"
)

// runStoreConformance exercises the Store contract shared by every backend.
// Backend test files call it with a freshly provisioned, empty store.
func runStoreConformance(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("GetMissingFlag", func(t *testing.T) {
		_, err := store.Get(ctx, "conformance-missing")
		assert.ErrorIs(t, err, ErrFlagNotFound)
	})

	t.Run("PutCreatesFlag", func(t *testing.T) {
		name := "conformance-create"
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GateBoolean, Enabled: true}))

		f, err := store.Get(ctx, name)
		require.NoError(t, err)
		require.Len(t, f.Gates, 1)
		assert.Equal(t, name, f.Name)
		assert.True(t, f.Gates[0].Enabled)
	})

	t.Run("PutReplacesGateByKey", func(t *testing.T) {
		name := "conformance-replace"
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GateActor, Target: "user:1", Enabled: true}))
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GateActor, Target: "user:1", Enabled: false}))
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GateActor, Target: "user:2", Enabled: true}))

		f, err := store.Get(ctx, name)
		require.NoError(t, err)
		require.Len(t, f.Gates, 2)

		g, ok := f.GateByKey("actor/user:1")
		require.True(t, ok)
		assert.False(t, g.Enabled)
	})

	t.Run("PercentageGatesShareSlot", func(t *testing.T) {
		name := "conformance-percentage"
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GatePercentageOfTime, Percentage: 50}))
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GatePercentageOfActors, Percentage: 25}))

		f, err := store.Get(ctx, name)
		require.NoError(t, err)
		require.Len(t, f.Gates, 1)
		assert.Equal(t, flags.GatePercentageOfActors, f.Gates[0].Kind)
		assert.Equal(t, 25, f.Gates[0].Percentage)
	})

	t.Run("DeleteRemovesGate", func(t *testing.T) {
		name := "conformance-delete"
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GateBoolean, Enabled: true}))
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GateGroup, Target: "ops", Enabled: true}))

		require.NoError(t, store.Delete(ctx, name, flags.Gate{Kind: flags.GateGroup, Target: "ops"}))

		f, err := store.Get(ctx, name)
		require.NoError(t, err)
		require.Len(t, f.Gates, 1)
		assert.Equal(t, flags.GateBoolean, f.Gates[0].Kind)
	})

	t.Run("DeleteLastGateRemovesFlag", func(t *testing.T) {
		name := "conformance-delete-last"
		gate := flags.Gate{Kind: flags.GateBoolean, Enabled: true}
		require.NoError(t, store.Put(ctx, name, gate))
		require.NoError(t, store.Delete(ctx, name, gate))

		_, err := store.Get(ctx, name)
		assert.ErrorIs(t, err, ErrFlagNotFound)
	})

	t.Run("DeleteAbsentFlagIsNoop", func(t *testing.T) {
		err := store.Delete(ctx, "conformance-never-written", flags.Gate{Kind: flags.GateBoolean})
		assert.NoError(t, err)
	})

	t.Run("ClearRemovesFlag", func(t *testing.T) {
		name := "conformance-clear"
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GateBoolean, Enabled: true}))
		require.NoError(t, store.Put(ctx, name, flags.Gate{Kind: flags.GateGroup, Target: "ops", Enabled: true}))
		require.NoError(t, store.Clear(ctx, name))

		_, err := store.Get(ctx, name)
		assert.ErrorIs(t, err, ErrFlagNotFound)

		// Clearing again is fine.
		assert.NoError(t, store.Clear(ctx, name))
	})

	t.Run("AllOrderedByName", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "conformance-all-b", flags.Gate{Kind: flags.GateBoolean, Enabled: true}))
		require.NoError(t, store.Put(ctx, "conformance-all-a", flags.Gate{Kind: flags.GateBoolean, Enabled: false}))

		all, err := store.All(ctx)
		require.NoError(t, err)

		idxA, idxB := -1, -1
		for i, f := range all {
			switch f.Name {
			case "conformance-all-a":
				idxA = i
			case "conformance-all-b":
				idxB = i
			}
		}
		require.NotEqual(t, -1, idxA)
		require.NotEqual(t, -1, idxB)
		assert.Less(t, idxA, idxB)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
