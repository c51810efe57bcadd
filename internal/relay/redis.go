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
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBus broadcasts invalidations through a Redis pub/sub channel.
// Redis pub/sub is fire and forget: subscribers that are down miss
// messages and recover through the cache TTL.
type RedisBus struct {
	client  *redis.Client
	channel string
}

var _ Bus = (*RedisBus)(nil)

// NewRedisBus creates a Redis-backed Bus from the configuration.
func NewRedisBus(cfg Config) *RedisBus {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &RedisBus{
		client:  client,
		channel: cfg.Topic,
	}
}

// NewRedisBusWithClient creates a Redis-backed Bus on an existing client.
func NewRedisBusWithClient(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channel,
	}
}

// Publish sends one invalidation message to the channel.
func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	data, err := msg.Marshal()
	if err != nil {
		recordPublish(ctx, BackendRedis, err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	err = b.client.Publish(ctx, b.channel, data).Err()
	recordPublish(ctx, BackendRedis, err)
	if err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe delivers channel messages to handler until ctx is canceled or
// the subscription drops.
func (b *RedisBus) Subscribe(ctx context.Context, handler Handler) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			slog.Warn("Failed to close relay subscription", slog.Any("error", err))
		}
	}()

	// Force the subscribe round trip so a bad connection fails here
	// instead of silently delivering nothing.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rmsg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to channel %s closed", b.channel)
			}
			var msg Message
			if err := msg.Unmarshal([]byte(rmsg.Payload)); err != nil {
				recordDecodeError(ctx, BackendRedis)
				slog.Warn("Dropping undecodable relay message",
					slog.String("channel", b.channel),
					slog.Any("error", err))
				continue
			}
			recordReceived(ctx, BackendRedis)
			handler(msg)
		}
	}
}

// Close shuts down the Redis client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
