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

package flagdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxotel"

	flagdbmigrations "github.com/cardinalhq/flagrunner/flagdb/migrations"
)

// ErrDatabaseNotConfigured indicates the FLAGDB_* environment is absent, as
// opposed to present but unreachable.
var ErrDatabaseNotConfigured = errors.New("database connection configuration is unavailable")

// Options configures database connection behavior.
type Options struct {
	SkipMigrationCheck bool
}

// ConnectToFlagDB opens a pool against the flag database described by the
// FLAGDB_* environment and verifies the schema is at the expected migration
// version before returning it. The migrate command connects with
// SkipMigrationCheck set, since it runs before the schema exists.
func ConnectToFlagDB(ctx context.Context, opts ...Options) (*pgxpool.Pool, error) {
	connectionString, err := databaseURLFromEnv("FLAGDB")
	if err != nil {
		return nil, errors.Join(ErrDatabaseNotConfigured, fmt.Errorf("failed to get FLAGDB connection string: %w", err))
	}

	pool, err := newConnectionPool(ctx, connectionString)
	if err != nil {
		return nil, err
	}

	skipMigrationCheck := false
	if len(opts) > 0 {
		skipMigrationCheck = opts[0].SkipMigrationCheck
	}

	if !skipMigrationCheck {
		if err := flagdbmigrations.CheckExpectedVersion(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("FLAGDB migration version check failed: %w", err)
		}
	}

	return pool, nil
}

// FlagDBStore connects and wraps the pool in a Store.
func FlagDBStore(ctx context.Context) (*Store, error) {
	pool, err := ConnectToFlagDB(ctx)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

func newConnectionPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	cfg.ConnConfig.Tracer = &pgxotel.QueryTracer{
		Name: "flagdb",
	}

	return pgxpool.NewWithConfig(ctx, cfg)
}

// databaseURLFromEnv constructs a PostgreSQL URL from environment variables
// named PREFIX_HOST, PREFIX_PORT, PREFIX_USER, PREFIX_PASSWORD,
// PREFIX_DBNAME, and optionally PREFIX_SSLMODE. PREFIX_URL, when set,
// short-circuits all of them. HOST and DBNAME are required; PORT defaults
// to 5432.
func databaseURLFromEnv(prefix string) (string, error) {
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	if urlStr := os.Getenv(prefix + "URL"); urlStr != "" {
		return urlStr, nil
	}

	host := os.Getenv(prefix + "HOST")
	dbname := os.Getenv(prefix + "DBNAME")

	var missing []string
	if host == "" {
		missing = append(missing, prefix+"HOST")
	}
	if dbname == "" {
		missing = append(missing, prefix+"DBNAME")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf(
			"missing required environment variable(s): %s",
			strings.Join(missing, ", "),
		)
	}

	port := os.Getenv(prefix + "PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv(prefix + "USER")
	pass := os.Getenv(prefix + "PASSWORD")
	sslmode := os.Getenv(prefix + "SSLMODE")

	u := &url.URL{
		Scheme: "postgresql",
		Host:   host + ":" + port,
		Path:   dbname,
	}

	if user != "" {
		if pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}

	q := u.Query()
	if sslmode != "" {
		q.Set("sslmode", sslmode)
	}

	// Surface the service name to pg_stat_activity when the process runs
	// with OTEL_SERVICE_NAME set.
	if appName := os.Getenv("OTEL_SERVICE_NAME"); appName != "" {
		if q.Get("application_name") == "" {
			appName = strings.Map(func(r rune) rune {
				if (r >= 'a' && r <= 'z') ||
					(r >= 'A' && r <= 'Z') ||
					(r >= '0' && r <= '9') ||
					r == '-' || r == '_' {
					return r
				}
				return '_'
			}, appName)
			if len(appName) > 63 {
				appName = appName[:63]
			}
			q.Set("application_name", appName)
		}
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}
