package postgis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateSavedRoute(ctx context.Context, r models.SavedRoute) (models.SavedRoute, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_routes (id, user_id, origin_lat, origin_lon, destination_lat, destination_lon, activity_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.UserID, r.OriginLat, r.OriginLon, r.DestinationLat, r.DestinationLon, string(r.ActivityType),
	)
	if err != nil {
		return models.SavedRoute{}, fmt.Errorf("postgis: create saved route: %w", err)
	}
	return s.GetSavedRoute(ctx, r.ID)
}

func (s *Store) GetSavedRoute(ctx context.Context, id uuid.UUID) (models.SavedRoute, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, origin_lat, origin_lon, destination_lat, destination_lon, activity_type,
		        last_upes_score, last_upes_updated_at, created_at
		 FROM saved_routes WHERE id = $1`, id,
	)
	return scanSavedRoute(row)
}

func (s *Store) ListSavedRoutesByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedRoute, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, origin_lat, origin_lon, destination_lat, destination_lon, activity_type,
		        last_upes_score, last_upes_updated_at, created_at
		 FROM saved_routes WHERE user_id = $1 ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgis: list saved routes by user: %w", err)
	}
	defer rows.Close()
	return collectSavedRoutes(rows)
}

func (s *Store) ListAllSavedRoutes(ctx context.Context) ([]models.SavedRoute, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, origin_lat, origin_lon, destination_lat, destination_lon, activity_type,
		        last_upes_score, last_upes_updated_at, created_at
		 FROM saved_routes ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgis: list all saved routes: %w", err)
	}
	defer rows.Close()
	return collectSavedRoutes(rows)
}

func (s *Store) DeleteSavedRoute(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgis: delete saved route: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("saved route %s not found", id)
	}
	return nil
}

func (s *Store) UpdateSavedRouteLastScore(ctx context.Context, id uuid.UUID, score float64, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE saved_routes SET last_upes_score = $1, last_upes_updated_at = $2 WHERE id = $3`,
		score, at, id,
	)
	if err != nil {
		return fmt.Errorf("postgis: update last score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("saved route %s not found", id)
	}
	return nil
}

func scanSavedRoute(row pgx.Row) (models.SavedRoute, error) {
	var r models.SavedRoute
	var activity string
	err := row.Scan(&r.ID, &r.UserID, &r.OriginLat, &r.OriginLon, &r.DestinationLat, &r.DestinationLon,
		&activity, &r.LastUPESScore, &r.LastUPESUpdatedAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SavedRoute{}, apierr.NotFound("saved route not found")
	}
	if err != nil {
		return models.SavedRoute{}, fmt.Errorf("postgis: scan saved route: %w", err)
	}
	r.ActivityType = domain.ActivityType(activity)
	return r, nil
}

func collectSavedRoutes(rows pgx.Rows) ([]models.SavedRoute, error) {
	var out []models.SavedRoute
	for rows.Next() {
		var r models.SavedRoute
		var activity string
		if err := rows.Scan(&r.ID, &r.UserID, &r.OriginLat, &r.OriginLon, &r.DestinationLat, &r.DestinationLon,
			&activity, &r.LastUPESScore, &r.LastUPESUpdatedAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgis: scan saved route row: %w", err)
		}
		r.ActivityType = domain.ActivityType(activity)
		out = append(out, r)
	}
	return out, rows.Err()
}
