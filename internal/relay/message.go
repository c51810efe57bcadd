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

package relay

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageVersion is the current invalidation message schema version.
const MessageVersion int16 = 1

// Message is one cache invalidation event. It names either a single flag or
// the whole cache, and carries the identity of the node that produced it so
// subscribers can ignore their own echoes.
// Using short JSON keys to minimize message size on the wire.
type Message struct {
	Version  int16     `json:"v"`
	FlagName string    `json:"f,omitempty"` // flag name, empty when All is set
	All      bool      `json:"a,omitempty"` // invalidate everything
	Origin   string    `json:"o"`           // node identity of the publisher
	SentAt   time.Time `json:"t"`           // publish timestamp
}

// NewFlagMessage builds an invalidation for a single flag.
func NewFlagMessage(flagName, origin string) Message {
	return Message{
		Version:  MessageVersion,
		FlagName: flagName,
		Origin:   origin,
		SentAt:   time.Now(),
	}
}

// NewFlushAllMessage builds a whole-cache invalidation.
func NewFlushAllMessage(origin string) Message {
	return Message{
		Version: MessageVersion,
		All:     true,
		Origin:  origin,
		SentAt:  time.Now(),
	}
}

// Marshal converts the message to JSON bytes
func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal converts JSON bytes to Message
func (m *Message) Unmarshal(data []byte) error {
	return json.Unmarshal(data, m)
}

// Validate checks the message is well formed and of a known version.
func (m Message) Validate() error {
	if m.Version != MessageVersion {
		return fmt.Errorf("unsupported message version %d", m.Version)
	}
	if m.All && m.FlagName != "" {
		return fmt.Errorf("message names flag %q and all at once", m.FlagName)
	}
	if !m.All && m.FlagName == "" {
		return fmt.Errorf("message names neither a flag nor all")
	}
	if m.Origin == "" {
		return fmt.Errorf("message has no origin")
	}
	return nil
}
