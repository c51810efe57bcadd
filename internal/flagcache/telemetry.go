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

package flagcache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	invalidations metric.Int64Counter
	echoesDropped metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/flagrunner/internal/flagcache")

	var err error
	cacheHits, err = meter.Int64Counter(
		"flagrunner.flagcache.hits",
		metric.WithDescription("Total number of flag lookups served from the cache"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cache hits counter: %w", err))
	}

	cacheMisses, err = meter.Int64Counter(
		"flagrunner.flagcache.misses",
		metric.WithDescription("Total number of flag lookups that missed the cache"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cache misses counter: %w", err))
	}

	invalidations, err = meter.Int64Counter(
		"flagrunner.flagcache.invalidations",
		metric.WithDescription("Total number of cache invalidations applied"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create invalidations counter: %w", err))
	}

	echoesDropped, err = meter.Int64Counter(
		"flagrunner.flagcache.echoes.dropped",
		metric.WithDescription("Total number of self-originated invalidation messages dropped"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create echoes dropped counter: %w", err))
	}
}

func recordLookup(ctx context.Context, hit bool) {
	if hit {
		cacheHits.Add(ctx, 1)
		return
	}
	cacheMisses.Add(ctx, 1)
}

func recordInvalidation(ctx context.Context, scope string) {
	invalidations.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

func recordEchoDropped(ctx context.Context) {
	echoesDropped.Add(ctx, 1)
}
