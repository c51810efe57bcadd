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

package supervisor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var restarts metric.Int64Counter

func init() {
	meter := otel.Meter("github.com/cardinalhq/flagrunner/internal/supervisor")

	var err error
	restarts, err = meter.Int64Counter(
		"flagrunner.supervisor.restarts",
		metric.WithDescription("Total number of supervised unit restarts"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create restarts counter: %w", err))
	}
}

func recordRestart(ctx context.Context, unit string) {
	restarts.Add(ctx, 1, metric.WithAttributes(attribute.String("unit", unit)))
}
