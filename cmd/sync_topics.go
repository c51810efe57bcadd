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

	"github.com/cardinalhq/flagrunner/config"
	"github.com/cardinalhq/flagrunner/internal/relay"
)

var syncTopicsFix bool

func init() {
	cmd := &cobra.Command{
		Use:   "sync-topics",
		Short: "Provision the Kafka invalidation topic",
		Long:  "Create or verify the Kafka topic the relay broadcasts invalidations on",
		RunE:  syncTopics,
	}
	cmd.Flags().BoolVar(&syncTopicsFix, "fix", true, "Create or update the topic instead of only reporting drift")
	rootCmd.AddCommand(cmd)
}

func syncTopics(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Relay.Backend != relay.BackendKafka {
		slog.Info("Relay backend is not kafka, nothing to sync", slog.String("backend", cfg.Relay.Backend))
		return nil
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(5*time.Minute))
	defer cancel()
	return relay.SyncTopic(ctx, cfg.Relay, syncTopicsFix)
}
