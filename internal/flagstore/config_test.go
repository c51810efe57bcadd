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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "postgres backend",
			mutate: func(c *Config) { c.Backend = BackendPostgres },
		},
		{
			name:   "redis backend with addr",
			mutate: func(c *Config) { c.Backend = BackendRedis },
		},
		{
			name: "redis backend without addr",
			mutate: func(c *Config) {
				c.Backend = BackendRedis
				c.Redis.Addr = ""
			},
			wantErr: "store.redis.addr",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend = "etcd" },
			wantErr: "unknown store backend",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: "store.timeout",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Timeout = -time.Second },
			wantErr: "store.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
