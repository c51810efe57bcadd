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

package flags

import (
	"fmt"
)

// GateKind identifies the rule type a gate carries.
type GateKind string

const (
	GateBoolean            GateKind = "boolean"
	GateActor              GateKind = "actor"
	GateGroup              GateKind = "group"
	GatePercentageOfTime   GateKind = "percentage_of_time"
	GatePercentageOfActors GateKind = "percentage_of_actors"
)

// Gate is a single rule record attached to a flag. Gates are opaque to the
// storage and caching layers; evaluation happens in client code.
type Gate struct {
	Kind       GateKind `json:"kind"`
	Target     string   `json:"target,omitempty"`
	Enabled    bool     `json:"enabled"`
	Percentage int      `json:"percentage,omitempty"`
}

// Key returns the gate's identity for upserts. Writing a gate replaces any
// stored gate with the same key. The two percentage kinds share one slot:
// a flag carries at most one percentage rule at a time.
func (g Gate) Key() string {
	switch g.Kind {
	case GateActor, GateGroup:
		return string(g.Kind) + "/" + g.Target
	case GatePercentageOfTime, GatePercentageOfActors:
		return "percentage"
	default:
		return string(g.Kind)
	}
}

// Validate checks the gate is well formed for its kind.
func (g Gate) Validate() error {
	switch g.Kind {
	case GateBoolean:
		if g.Target != "" {
			return fmt.Errorf("boolean gate must not have a target")
		}
	case GateActor, GateGroup:
		if g.Target == "" {
			return fmt.Errorf("%s gate requires a target", g.Kind)
		}
	case GatePercentageOfTime, GatePercentageOfActors:
		if g.Target != "" {
			return fmt.Errorf("%s gate must not have a target", g.Kind)
		}
		if g.Percentage < 0 || g.Percentage > 100 {
			return fmt.Errorf("%s gate percentage %d out of range 0..100", g.Kind, g.Percentage)
		}
	default:
		return fmt.Errorf("unknown gate kind %q", g.Kind)
	}
	return nil
}
