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

// Package relay carries cache invalidation messages between flagrunner
// nodes. A Bus is a thin broadcast transport: every subscriber receives
// every message, including the ones it published itself. Filtering out
// self-originated messages is the subscriber's job.
package relay

import (
	"context"
	"fmt"
	"log/slog"
)

// Handler is called once per received message, in subscription order.
type Handler func(msg Message)

// Bus broadcasts invalidation messages to every flagrunner node.
type Bus interface {
	// Publish sends a message to all subscribers, best effort. A failed
	// publish leaves other nodes to their TTL backstop.
	Publish(ctx context.Context, msg Message) error

	// Subscribe delivers messages to handler until ctx is canceled or the
	// transport fails. It blocks for the lifetime of the subscription.
	Subscribe(ctx context.Context, handler Handler) error

	// Close releases transport resources.
	Close() error
}

// Setup creates the Bus named by the configuration. nodeID scopes the
// Kafka consumer group so every node sees the full broadcast.
func Setup(cfg Config, nodeID string) (Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendKafka:
		slog.Info("Using Kafka invalidation relay",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Topic))
		return NewKafkaBus(cfg, nodeID)
	case BackendRedis:
		slog.Info("Using Redis invalidation relay",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("channel", cfg.Topic))
		return NewRedisBus(cfg), nil
	case BackendNoop:
		slog.Info("Invalidation relay disabled")
		return NewNoopBus(), nil
	default:
		return nil, fmt.Errorf("unknown relay backend: %s", cfg.Backend)
	}
}
