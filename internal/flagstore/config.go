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
	"fmt"
	"time"
)

// Supported store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config selects and tunes the persistent store backend.
type Config struct {
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DefaultConfig returns default settings: an in-memory store with a 2s
// per-operation timeout.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Timeout: 2 * time.Second,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "flagrunner",
		},
	}
}

// Validate checks the backend selection is usable.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPostgres, BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("store backend %q requires store.redis.addr", c.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
