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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/cardinalhq/flagrunner/internal/flags"
)

// RedisStore keeps each flag in a hash keyed by gate key, plus a registry
// set of known flag names for listing. Gate writes are single HSET fields,
// so concurrent writers interleave at gate granularity and last write wins.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(cfg RedisConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "flagrunner"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreWithClient wraps an existing client, mainly for tests.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "flagrunner"
	}
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (s *RedisStore) flagKey(name string) string {
	return s.prefix + ":flag:" + name
}

func (s *RedisStore) registryKey() string {
	return s.prefix + ":flags"
}

func (s *RedisStore) Get(ctx context.Context, name string) (flags.Flag, error) {
	fields, err := s.client.HGetAll(ctx, s.flagKey(name)).Result()
	if err != nil {
		return flags.Flag{}, fmt.Errorf("failed to get flag %q: %w", name, err)
	}
	if len(fields) == 0 {
		return flags.Flag{}, ErrFlagNotFound
	}
	return decodeFlagHash(name, fields)
}

func (s *RedisStore) Put(ctx context.Context, name string, gate flags.Gate) error {
	data, err := json.Marshal(gate)
	if err != nil {
		return fmt.Errorf("failed to encode gate for flag %q: %w", name, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.flagKey(name), gate.Key(), data)
		pipe.SAdd(ctx, s.registryKey(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put gate for flag %q: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, name string, gate flags.Gate) error {
	key := s.flagKey(name)
	if err := s.client.HDel(ctx, key, gate.Key()).Err(); err != nil {
		return fmt.Errorf("failed to delete gate for flag %q: %w", name, err)
	}
	left, err := s.client.HLen(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check remaining gates for flag %q: %w", name, err)
	}
	if left == 0 {
		// A concurrent put landing between HLEN and this cleanup loses the
		// race; last write wins.
		return s.Clear(ctx, name)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, name string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.flagKey(name))
		pipe.SRem(ctx, s.registryKey(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear flag %q: %w", name, err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) ([]flags.Flag, error) {
	names, err := s.client.SMembers(ctx, s.registryKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flag names: %w", err)
	}
	sort.Strings(names)

	cmds := make([]*redis.MapStringStringCmd, len(names))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, name := range names {
			cmds[i] = pipe.HGetAll(ctx, s.flagKey(name))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flags: %w", err)
	}

	out := make([]flags.Flag, 0, len(names))
	for i, name := range names {
		fields, err := cmds[i].Result()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch flag %q: %w", name, err)
		}
		if len(fields) == 0 {
			// Registry entry left behind by a concurrent clear.
			continue
		}
		f, err := decodeFlagHash(name, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// decodeFlagHash rebuilds a flag from its hash fields. Hash field order is
// unspecified, so gates are ordered by field key for stable results.
func decodeFlagHash(name string, fields map[string]string) (flags.Flag, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := flags.Flag{Name: name, Gates: make([]flags.Gate, 0, len(keys))}
	for _, k := range keys {
		var g flags.Gate
		if err := json.Unmarshal([]byte(fields[k]), &g); err != nil {
			return flags.Flag{}, fmt.Errorf("failed to decode gate %q of flag %q: %w", k, name, err)
		}
		f.Gates = append(f.Gates, g)
	}
	return f, nil
}
