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

//go:build integration
// +build integration

package flagdb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/flagrunner/internal/flags"
)

func testFlagName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

func TestFlagStoreOperations(t *testing.T) {
	ctx := context.Background()

	pool, err := ConnectToFlagDB(ctx)
	require.NoError(t, err)
	defer pool.Close()

	store := NewStore(pool)

	t.Run("GetFlagMissing", func(t *testing.T) {
		_, err := store.GetFlag(ctx, testFlagName("missing"))
		assert.True(t, errors.Is(err, pgx.ErrNoRows))
	})

	t.Run("UpsertGateCreatesFlag", func(t *testing.T) {
		name := testFlagName("create")
		defer func() { _ = store.ClearFlag(ctx, name) }()

		err := store.UpsertGate(ctx, name, flags.Gate{Kind: flags.GateBoolean, Enabled: true})
		require.NoError(t, err)

		flag, err := store.GetFlag(ctx, name)
		require.NoError(t, err)
		require.Len(t, flag.Gates, 1)
		assert.Equal(t, flags.GateBoolean, flag.Gates[0].Kind)
		assert.True(t, flag.Gates[0].Enabled)
	})

	t.Run("UpsertGateReplacesByKey", func(t *testing.T) {
		name := testFlagName("replace")
		defer func() { _ = store.ClearFlag(ctx, name) }()

		require.NoError(t, store.UpsertGate(ctx, name, flags.Gate{Kind: flags.GateBoolean, Enabled: true}))
		require.NoError(t, store.UpsertGate(ctx, name, flags.Gate{Kind: flags.GateActor, Target: "user:42", Enabled: true}))
		require.NoError(t, store.UpsertGate(ctx, name, flags.Gate{Kind: flags.GateBoolean, Enabled: false}))

		flag, err := store.GetFlag(ctx, name)
		require.NoError(t, err)
		require.Len(t, flag.Gates, 2)
		g, ok := flag.GateByKey("boolean")
		require.True(t, ok)
		assert.False(t, g.Enabled)
	})

	t.Run("RemoveGateDropsRowWhenEmpty", func(t *testing.T) {
		name := testFlagName("drop")
		defer func() { _ = store.ClearFlag(ctx, name) }()

		gate := flags.Gate{Kind: flags.GateGroup, Target: "admins", Enabled: true}
		require.NoError(t, store.UpsertGate(ctx, name, gate))
		require.NoError(t, store.RemoveGate(ctx, name, gate))

		_, err := store.GetFlag(ctx, name)
		assert.True(t, errors.Is(err, pgx.ErrNoRows))
	})

	t.Run("RemoveGateAbsentFlagIsNoop", func(t *testing.T) {
		err := store.RemoveGate(ctx, testFlagName("absent"), flags.Gate{Kind: flags.GateBoolean})
		assert.NoError(t, err)
	})

	t.Run("ListFlagsOrdered", func(t *testing.T) {
		base := testFlagName("list")
		nameA := base + "-a"
		nameB := base + "-b"
		defer func() {
			_ = store.ClearFlag(ctx, nameA)
			_ = store.ClearFlag(ctx, nameB)
		}()

		require.NoError(t, store.UpsertGate(ctx, nameB, flags.Gate{Kind: flags.GateBoolean, Enabled: true}))
		require.NoError(t, store.UpsertGate(ctx, nameA, flags.Gate{Kind: flags.GateBoolean, Enabled: false}))

		all, err := store.ListFlags(ctx)
		require.NoError(t, err)

		idxA, idxB := -1, -1
		for i, f := range all {
			switch f.Name {
			case nameA:
				idxA = i
			case nameB:
				idxB = i
			}
		}
		require.NotEqual(t, -1, idxA)
		require.NotEqual(t, -1, idxB)
		assert.Less(t, idxA, idxB)
	})

	t.Run("ClearFlag", func(t *testing.T) {
		name := testFlagName("clear")

		require.NoError(t, store.UpsertGate(ctx, name, flags.Gate{Kind: flags.GateBoolean, Enabled: true}))
		require.NoError(t, store.ClearFlag(ctx, name))

		_, err := store.GetFlag(ctx, name)
		assert.True(t, errors.Is(err, pgx.ErrNoRows))
	})
}
