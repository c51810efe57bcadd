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

// Package flags holds the feature flag domain types shared by the storage
// adapters, the cache, and the API surface.
package flags

import (
	"fmt"
	"slices"
)

// MaxNameLength bounds flag names so they stay usable as Redis key
// components and Kafka message keys.
const MaxNameLength = 255

// Flag is the full stored state of one feature flag: its name and the gate
// set attached to it. A flag with no gates is the default, disabled state.
type Flag struct {
	Name  string `json:"name"`
	Gates []Gate `json:"gates,omitempty"`
}

// Default returns the disabled state for a flag that has never been written.
func Default(name string) Flag {
	return Flag{Name: name}
}

// IsDefault reports whether the flag carries no gates.
func (f Flag) IsDefault() bool {
	return len(f.Gates) == 0
}

// Clone returns a deep copy so cached values can be handed out safely.
func (f Flag) Clone() Flag {
	out := Flag{Name: f.Name}
	if len(f.Gates) > 0 {
		out.Gates = slices.Clone(f.Gates)
	}
	return out
}

// Equal reports value equality including gate order.
func (f Flag) Equal(other Flag) bool {
	return f.Name == other.Name && slices.Equal(f.Gates, other.Gates)
}

// WithGate returns a copy with gate upserted by its Key, preserving the
// position of a replaced gate.
func (f Flag) WithGate(gate Gate) Flag {
	out := f.Clone()
	key := gate.Key()
	for i, g := range out.Gates {
		if g.Key() == key {
			out.Gates[i] = gate
			return out
		}
	}
	out.Gates = append(out.Gates, gate)
	return out
}

// WithoutGate returns a copy with any gate matching gate's Key removed.
func (f Flag) WithoutGate(gate Gate) Flag {
	out := f.Clone()
	key := gate.Key()
	out.Gates = slices.DeleteFunc(out.Gates, func(g Gate) bool {
		return g.Key() == key
	})
	if len(out.Gates) == 0 {
		out.Gates = nil
	}
	return out
}

// GateByKey returns the gate stored under key, if any.
func (f Flag) GateByKey(key string) (Gate, bool) {
	for _, g := range f.Gates {
		if g.Key() == key {
			return g, true
		}
	}
	return Gate{}, false
}

// ValidateName checks a flag name is usable as a store and message key.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("flag name must not be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("flag name exceeds %d bytes", MaxNameLength)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("flag name contains control characters")
		}
	}
	return nil
}
