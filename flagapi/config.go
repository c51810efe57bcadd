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

package flagapi

import "fmt"

// Config holds the flag API server configuration.
type Config struct {
	Port int `mapstructure:"port"`
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{Port: 8080}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("api port %d out of range", c.Port)
	}
	return nil
}
