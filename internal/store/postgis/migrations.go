package postgis

import (
	"context"
	"fmt"
)

// schema creates every table this module persists to. pollution_grid and
// route_exposure_history and alert_log are append-only event logs; nothing
// in this module issues UPDATE or DELETE against them except saved_routes'
// denormalized last-score columns.
const schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS users (
	id                         UUID PRIMARY KEY,
	email                      TEXT NOT NULL UNIQUE,
	password_hash              TEXT NOT NULL,
	exposure_sensitivity_level INTEGER NOT NULL DEFAULT 1,
	notification_preferences  JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS saved_routes (
	id                   UUID PRIMARY KEY,
	user_id              UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	origin_lat           DOUBLE PRECISION NOT NULL,
	origin_lon           DOUBLE PRECISION NOT NULL,
	destination_lat      DOUBLE PRECISION NOT NULL,
	destination_lon      DOUBLE PRECISION NOT NULL,
	activity_type        TEXT NOT NULL,
	last_upes_score      DOUBLE PRECISION,
	last_upes_updated_at TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_saved_routes_user_id ON saved_routes(user_id);

CREATE TABLE IF NOT EXISTS pollution_grid (
	id              BIGSERIAL PRIMARY KEY,
	"timestamp"     TIMESTAMPTZ NOT NULL,
	gas_type        TEXT NOT NULL,
	geom            GEOMETRY(POLYGON, 4326) NOT NULL,
	pollution_value DOUBLE PRECISION NOT NULL,
	severity_level  SMALLINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_pollution_grid_geom ON pollution_grid USING GIST(geom);
CREATE INDEX IF NOT EXISTS idx_pollution_grid_gas_ts ON pollution_grid(gas_type, "timestamp");

CREATE TABLE IF NOT EXISTS netcdf_files (
	id          BIGSERIAL PRIMARY KEY,
	file_name   TEXT NOT NULL,
	bucket_path TEXT NOT NULL,
	"timestamp" TIMESTAMPTZ NOT NULL,
	gas_type    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS route_exposure_history (
	id                   BIGSERIAL PRIMARY KEY,
	route_id             UUID NOT NULL REFERENCES saved_routes(id) ON DELETE CASCADE,
	"timestamp"          TIMESTAMPTZ NOT NULL,
	upes_score           DOUBLE PRECISION NOT NULL,
	max_upes_along_route DOUBLE PRECISION NOT NULL,
	score_source         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_route_exposure_history_route_ts ON route_exposure_history(route_id, "timestamp" DESC);

CREATE TABLE IF NOT EXISTS alert_log (
	id                BIGSERIAL PRIMARY KEY,
	user_id           UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	route_id          UUID NOT NULL REFERENCES saved_routes(id) ON DELETE CASCADE,
	alert_type        TEXT NOT NULL,
	score_before      DOUBLE PRECISION NOT NULL,
	score_after       DOUBLE PRECISION NOT NULL,
	threshold         DOUBLE PRECISION NOT NULL,
	metadata          JSONB NOT NULL DEFAULT '{}'::jsonb,
	notified_channels TEXT[] NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_alert_log_route_type_created ON alert_log(route_id, alert_type, created_at DESC);
`

// Migrate applies schema. It is idempotent: every statement uses
// IF NOT EXISTS, so running it against an already-migrated database is a
// no-op, matching the "migrate on every deploy" pattern the cmd/aeris
// migrate subcommand relies on.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgis: migrate: %w", err)
	}
	return nil
}
