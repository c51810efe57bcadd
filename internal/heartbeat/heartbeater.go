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

// Package heartbeat runs a callback on a fixed interval. The serve
// command uses it to probe flag store reachability for the readiness
// endpoint.
package heartbeat

import (
	"context"
	"log/slog"
	"time"
)

// Func is invoked on every beat. An error is logged and the loop keeps
// going; a probe that fails now may succeed on the next interval.
type Func func(ctx context.Context) error

// Heartbeater drives a Func on a fixed interval.
type Heartbeater struct {
	fn       Func
	ll       *slog.Logger
	interval time.Duration
}

// New creates a heartbeater. A nil logger falls back to slog.Default().
func New(fn Func, interval time.Duration, logger *slog.Logger) *Heartbeater {
	if logger == nil {
		logger = slog.Default()
	}

	return &Heartbeater{
		fn:       fn,
		ll:       logger.With(slog.String("component", "heartbeat")),
		interval: interval,
	}
}

// Start beats once immediately, then on every interval until ctx is
// canceled or the returned stop function is called.
func (h *Heartbeater) Start(ctx context.Context) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go h.run(ctx)
	return cancel
}

func (h *Heartbeater) run(ctx context.Context) {
	h.beat(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *Heartbeater) beat(ctx context.Context) {
	if err := h.fn(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		h.ll.Error("Heartbeat failed (continuing)", slog.Any("error", err))
	}
}
