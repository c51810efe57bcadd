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

package flagdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardinalhq/flagrunner/internal/flags"
)

// FeatureFlag is one row of the feature_flags table. Gates holds the JSONB
// gate array exactly as stored.
type FeatureFlag struct {
	ID        uuid.UUID
	Name      string
	Gates     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Flag decodes the row into the domain type.
func (r FeatureFlag) Flag() (flags.Flag, error) {
	f := flags.Flag{Name: r.Name}
	if len(r.Gates) > 0 {
		if err := json.Unmarshal(r.Gates, &f.Gates); err != nil {
			return flags.Flag{}, fmt.Errorf("failed to decode gates for flag %q: %w", r.Name, err)
		}
	}
	return f, nil
}

func encodeGates(gates []flags.Gate) ([]byte, error) {
	if len(gates) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(gates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gates: %w", err)
	}
	return data, nil
}
