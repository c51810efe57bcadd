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

package flagcache

import (
	"fmt"
	"time"
)

// Config holds the in-process flag cache configuration.
type Config struct {
	// Enabled turns the cache on. When false every lookup goes to the
	// persistent store.
	Enabled bool `mapstructure:"enabled"`

	// TTL bounds how long a cached flag may serve lookups before the
	// store is consulted again. This is the staleness backstop when
	// invalidation messages are lost or no relay is configured.
	TTL time.Duration `mapstructure:"ttl"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		TTL:     60 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Enabled && c.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive when the cache is enabled, got %s", c.TTL)
	}
	return nil
}
