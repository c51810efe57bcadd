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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cardinalhq/flagrunner/config"
	"github.com/cardinalhq/flagrunner/flagapi"
	"github.com/cardinalhq/flagrunner/internal/debugging"
	"github.com/cardinalhq/flagrunner/internal/flagcache"
	"github.com/cardinalhq/flagrunner/internal/flagstore"
	"github.com/cardinalhq/flagrunner/internal/healthcheck"
	"github.com/cardinalhq/flagrunner/internal/heartbeat"
	"github.com/cardinalhq/flagrunner/internal/idgen"
	"github.com/cardinalhq/flagrunner/internal/relay"
	"github.com/cardinalhq/flagrunner/internal/supervisor"
	"github.com/cardinalhq/flagrunner/internal/toggles"
)

const (
	storeKeepaliveInterval = 15 * time.Second
	storeKeepaliveTimeout  = 5 * time.Second
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the flag service node",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			servicename := "flagrunner"
			addlAttrs := attribute.NewSet(
				attribute.String("store.backend", cfg.Store.Backend),
				attribute.String("relay.backend", cfg.Relay.Backend),
			)
			ctx, doneFx, err := setupTelemetry(servicename, &addlAttrs)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			go debugging.RunPprof(ctx)

			healthServer := healthcheck.NewServer(cfg.Health)
			healthServer.SetStatus(healthcheck.StatusStarting)

			nodeID := idgen.NodeIdentity()

			store, err := flagstore.Setup(ctx, cfg.Store)
			if err != nil {
				return fmt.Errorf("failed to open flag store: %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					slog.Error("Error closing flag store", slog.Any("error", err))
				}
			}()
			healthServer.SetReadyCondition("store", true)

			var cache *flagcache.Cache
			if cfg.Cache.Enabled {
				cache = flagcache.New(cfg.Cache, nodeID)
				defer cache.Stop()
			}

			var bus relay.Bus
			if cfg.Relay.Active() {
				if cache == nil {
					slog.Warn("Change notifications are configured but the cache is disabled, skipping relay setup")
				} else {
					bus, err = relay.Setup(cfg.Relay, nodeID)
					if err != nil {
						return fmt.Errorf("failed to set up notification relay: %w", err)
					}
					defer func() {
						if err := bus.Close(); err != nil {
							slog.Error("Error closing notification relay", slog.Any("error", err))
						}
					}()
				}
			}

			facade := toggles.New(store, cache, bus, nodeID, cfg.Store.Timeout)
			apiServer := flagapi.NewServer(cfg.API, facade)

			units := []supervisor.Unit{
				{Name: "healthcheck", Run: healthServer.Run},
				{Name: "flag-api", Run: apiServer.Run},
				{Name: "store-keepalive", Run: storeKeepalive(store, healthServer)},
			}
			if cache != nil && bus != nil {
				units = append(units, supervisor.Unit{
					Name: "invalidation-listener",
					Run: func(ctx context.Context) error {
						return cache.SubscribeInvalidations(ctx, bus)
					},
				})
			}

			healthServer.SetStatus(healthcheck.StatusHealthy)
			healthServer.SetReady(true)

			slog.Info("Starting flagrunner",
				slog.String("nodeID", nodeID),
				slog.String("storeBackend", cfg.Store.Backend),
				slog.Bool("cachingEnabled", facade.CachingEnabled()),
				slog.Bool("notificationsEnabled", facade.NotificationsEnabled()))

			return supervisor.New(units...).Run(ctx)
		},
	}

	rootCmd.AddCommand(cmd)
}

// storeKeepalive periodically probes the persistent store and feeds the
// result into the readiness endpoint. An unreachable store flips /readyz
// until a later probe succeeds.
func storeKeepalive(store flagstore.Store, health *healthcheck.Server) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		hb := heartbeat.New(func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, storeKeepaliveTimeout)
			defer cancel()
			err := store.Ping(pingCtx)
			health.SetReadyCondition("store", err == nil)
			return err
		}, storeKeepaliveInterval, slog.Default())

		stop := hb.Start(ctx)
		defer stop()
		<-ctx.Done()
		return ctx.Err()
	}
}
