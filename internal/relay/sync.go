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

package relay

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardinalhq/kafka-sync/kafkasync"
)

// Invalidations are only useful for about as long as a cache TTL, so the
// topic keeps a short retention.
const topicRetention = "7200000" // 2 hours, in ms

// SyncTopic ensures the Kafka invalidation topic exists with the
// configured partition and replication settings. With fix false it only
// reports drift.
func SyncTopic(ctx context.Context, cfg Config, fix bool) error {
	connConfig, err := syncConnectionConfig(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("failed to create connection config: %w", err)
	}

	topicsConfig := topicSyncConfig(cfg)

	syncer, err := kafkasync.NewSyncer(connConfig, topicsConfig)
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	mode := kafkasync.SyncModeInfo
	modeStr := "info"
	if fix {
		mode = kafkasync.SyncModeFix
		modeStr = "fix"
	}

	slog.Info("Syncing invalidation topic",
		slog.String("topic", cfg.Topic),
		slog.String("mode", modeStr))

	if err := syncer.Sync(ctx, mode); err != nil {
		return fmt.Errorf("failed to sync topics: %w", err)
	}

	slog.Info("Invalidation topic sync completed")
	return nil
}

func topicSyncConfig(cfg Config) *kafkasync.Config {
	return &kafkasync.Config{
		Defaults: kafkasync.Defaults{
			PartitionCount:    cfg.Kafka.TopicPartitions,
			ReplicationFactor: cfg.Kafka.TopicReplication,
			TopicConfig: map[string]string{
				"retention.ms": topicRetention,
			},
		},
		Topics:           []kafkasync.Topic{{Name: cfg.Topic}},
		OperationTimeout: 5 * time.Minute,
	}
}

func syncConnectionConfig(cfg KafkaConfig) (kafkasync.ConnectionConfig, error) {
	connConfig := kafkasync.ConnectionConfig{
		BootstrapServers: cfg.Brokers,
	}

	if cfg.SASLEnabled {
		mechanism, err := createSASLMechanism(cfg)
		if err != nil {
			return connConfig, fmt.Errorf("failed to create SASL mechanism: %w", err)
		}
		connConfig.SASLMechanism = mechanism
	}

	if cfg.TLSEnabled {
		connConfig.TLS = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		}
	}

	return connConfig, nil
}
