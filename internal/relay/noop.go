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

import "context"

// NoopBus discards every publish and never delivers anything. Nodes
// running without a relay converge through the cache TTL alone.
type NoopBus struct{}

var _ Bus = (*NoopBus)(nil)

// NewNoopBus creates a Bus that does nothing.
func NewNoopBus() *NoopBus {
	return &NoopBus{}
}

// Publish discards the message.
func (b *NoopBus) Publish(_ context.Context, _ Message) error {
	return nil
}

// Subscribe blocks until ctx is canceled and delivers nothing.
func (b *NoopBus) Subscribe(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close does nothing.
func (b *NoopBus) Close() error {
	return nil
}
