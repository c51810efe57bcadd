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

package idgen

import "time"

// nodeIdentity is minted once at process start and never changes. It is
// the origin tag on outgoing invalidation messages, which is how a node
// recognizes its own echoes, so it must be unique across the fleet but
// is never persisted anywhere.
var nodeIdentity string

func init() {
	nodeIdentity = NewULIDGenerator().Make(time.Now())
}

// NodeIdentity returns this process's unique identity token.
func NodeIdentity() string {
	return nodeIdentity
}
