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
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	messagesPublished metric.Int64Counter
	publishErrors     metric.Int64Counter
	messagesReceived  metric.Int64Counter
	decodeErrors      metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/flagrunner/internal/relay")

	var err error
	messagesPublished, err = meter.Int64Counter(
		"flagrunner.relay.messages.published",
		metric.WithDescription("Total number of invalidation messages published"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create messages published counter: %w", err))
	}

	publishErrors, err = meter.Int64Counter(
		"flagrunner.relay.publish.errors",
		metric.WithDescription("Total number of invalidation publish failures"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create publish errors counter: %w", err))
	}

	messagesReceived, err = meter.Int64Counter(
		"flagrunner.relay.messages.received",
		metric.WithDescription("Total number of invalidation messages received"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create messages received counter: %w", err))
	}

	decodeErrors, err = meter.Int64Counter(
		"flagrunner.relay.decode.errors",
		metric.WithDescription("Total number of invalidation messages dropped as undecodable"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create decode errors counter: %w", err))
	}
}

func recordPublish(ctx context.Context, backend string, err error) {
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	if err != nil {
		publishErrors.Add(ctx, 1, attrs)
		return
	}
	messagesPublished.Add(ctx, 1, attrs)
}

func recordReceived(ctx context.Context, backend string) {
	messagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
}

func recordDecodeError(ctx context.Context, backend string) {
	decodeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
}
