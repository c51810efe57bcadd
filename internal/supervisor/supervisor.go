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

// Package supervisor restarts long-running units independently of each
// other. A unit that exits or panics is restarted with exponential
// backoff; the other units never notice. Units hold no state the rest of
// the process depends on surviving a restart.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Unit is one independently supervised component. Run should block until
// ctx is canceled; returning earlier, with or without an error, counts as
// a failure and triggers a restart.
type Unit struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervisor runs units with one-for-one restart isolation.
type Supervisor struct {
	// InitialBackoff is the delay before the first restart of a unit.
	InitialBackoff time.Duration
	// MaxBackoff caps the restart delay.
	MaxBackoff time.Duration
	// ResetAfter is how long a unit must run for its next failure to
	// start again from InitialBackoff instead of the grown delay.
	ResetAfter time.Duration

	units []Unit
}

// New creates a Supervisor with default restart timing.
func New(units ...Unit) *Supervisor {
	return &Supervisor{
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		ResetAfter:     time.Minute,
		units:          units,
	}
}

// Run supervises every unit until ctx is canceled, then waits for them
// all to stop.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, u := range s.units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.supervise(ctx, u)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Supervisor) supervise(ctx context.Context, u Unit) {
	backoff := s.InitialBackoff
	for {
		started := time.Now()
		err := runUnit(ctx, u)
		if ctx.Err() != nil {
			slog.Info("Supervised unit stopped", slog.String("unit", u.Name))
			return
		}

		// A unit that held steady for a while earned a fresh backoff.
		if time.Since(started) >= s.ResetAfter {
			backoff = s.InitialBackoff
		}

		recordRestart(ctx, u.Name)
		slog.Error("Supervised unit exited, restarting",
			slog.String("unit", u.Name),
			slog.Any("error", err),
			slog.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, s.MaxBackoff)
	}
}

// runUnit invokes the unit, converting a panic into an error so one bad
// unit cannot take the process down.
func runUnit(ctx context.Context, u Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit %s panicked: %v", u.Name, r)
		}
	}()
	return u.Run(ctx)
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
