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

// Package idgen mints the identifiers flagrunner needs: the node identity
// every invalidation message carries, and short operation IDs for
// correlating log lines of one request.
package idgen

import (
	crand "crypto/rand"
	"encoding/base32"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator produces string identifiers from a timestamp.
type IDGenerator interface {
	Make(t time.Time) string
}

// InlineULIDGenerator mints independent ULIDs with no ordering guarantee
// between calls.
type InlineULIDGenerator struct{}

var _ IDGenerator = &InlineULIDGenerator{}

func (i *InlineULIDGenerator) Make(_ time.Time) string {
	return ulid.Make().String()
}

// ULIDGenerator mints monotonically increasing ULIDs for a fixed
// timestamp, so IDs minted within the same instant still sort in mint
// order.
type ULIDGenerator struct {
	entropy *ulid.MonotonicEntropy
}

var _ IDGenerator = &ULIDGenerator{}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(crand.Reader, 0),
	}
}

func (u *ULIDGenerator) Make(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), u.entropy).String()
}

// GenerateShortBase32ID creates a short random base32 ID for operation
// tracking. It is 8 characters long and not suitable for anything
// security sensitive.
func GenerateShortBase32ID() string {
	b := make([]byte, 5) // 5 bytes = 8 base32 chars
	_, _ = crand.Read(b) // errors from rand.Read are rare and not critical for operation IDs
	return strings.ToLower(base32.StdEncoding.EncodeToString(b))
}
