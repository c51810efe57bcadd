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

package toggles

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	lookups    metric.Int64Counter
	failClosed metric.Int64Counter
	writes     metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/flagrunner/internal/toggles")

	var err error
	lookups, err = meter.Int64Counter(
		"flagrunner.toggles.lookups",
		metric.WithDescription("Total number of flag lookups"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create lookups counter: %w", err))
	}

	failClosed, err = meter.Int64Counter(
		"flagrunner.toggles.failclosed",
		metric.WithDescription("Total number of lookups served the disabled default because the store failed"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create failclosed counter: %w", err))
	}

	writes, err = meter.Int64Counter(
		"flagrunner.toggles.writes",
		metric.WithDescription("Total number of flag mutations"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create writes counter: %w", err))
	}
}

func recordLookup(ctx context.Context) {
	lookups.Add(ctx, 1)
}

func recordFailClosed(ctx context.Context) {
	failClosed.Add(ctx, 1)
}

func recordWrite(ctx context.Context, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
