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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/flagrunner/flagdb"
	flagdbmigrations "github.com/cardinalhq/flagrunner/flagdb/migrations"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run flag database migrations",
	Long:  "Bring the flag database schema up to the version this build expects",
	RunE:  migrate,
}

func migrate(_ *cobra.Command, _ []string) error {
	slog.Info("Running flag database migrations")
	if err := migrateflagdb(); err != nil {
		return fmt.Errorf("failed to migrate flag database: %w", err)
	}
	slog.Info("Flag database migrations completed successfully")
	return nil
}

func migrateflagdb() error {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(5*time.Minute))
	defer cancel()
	pool, err := flagdb.ConnectToFlagDB(ctx, flagdb.Options{SkipMigrationCheck: true})
	if err != nil {
		return err
	}
	defer pool.Close()
	return flagdbmigrations.RunMigrationsUp(context.Background(), pool)
}
