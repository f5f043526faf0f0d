package postgis

import (
	"context"
	"fmt"
	"time"

	"github.com/aeris-platform/aeris/internal/models"
	"github.com/google/uuid"
)

func (s *Store) AppendRouteExposureHistory(ctx context.Context, h models.RouteExposureHistory) (models.RouteExposureHistory, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO route_exposure_history (route_id, "timestamp", upes_score, max_upes_along_route, score_source)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		h.RouteID, h.Timestamp, h.UPESScore, h.MaxUPESAlongRoute, string(h.ScoreSource),
	).Scan(&h.ID)
	if err != nil {
		return models.RouteExposureHistory{}, fmt.Errorf("postgis: append route exposure history: %w", err)
	}
	return h, nil
}

// LatestTwoRouteExposureHistory returns the two most recent history rows for
// routeID, newest first. This is the primary input to the
// route_deterioration alert rule, which compares the current score against
// the immediately preceding one.
func (s *Store) LatestTwoRouteExposureHistory(ctx context.Context, routeID uuid.UUID) (current, previous models.RouteExposureHistory, hasCurrent, hasPrevious bool) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, route_id, "timestamp", upes_score, max_upes_along_route, score_source
		 FROM route_exposure_history WHERE route_id = $1 ORDER BY "timestamp" DESC LIMIT 2`,
		routeID,
	)
	if err != nil {
		return models.RouteExposureHistory{}, models.RouteExposureHistory{}, false, false
	}
	defer rows.Close()

	var results []models.RouteExposureHistory
	for rows.Next() {
		var h models.RouteExposureHistory
		var source string
		if err := rows.Scan(&h.ID, &h.RouteID, &h.Timestamp, &h.UPESScore, &h.MaxUPESAlongRoute, &source); err != nil {
			return models.RouteExposureHistory{}, models.RouteExposureHistory{}, false, false
		}
		h.ScoreSource = models.ScoreSource(source)
		results = append(results, h)
	}
	if len(results) >= 1 {
		current, hasCurrent = results[0], true
	}
	if len(results) >= 2 {
		previous, hasPrevious = results[1], true
	}
	return current, previous, hasCurrent, hasPrevious
}

func (s *Store) RouteExposureHistorySince(ctx context.Context, routeID uuid.UUID, since time.Time) ([]models.RouteExposureHistory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, route_id, "timestamp", upes_score, max_upes_along_route, score_source
		 FROM route_exposure_history WHERE route_id = $1 AND "timestamp" >= $2 ORDER BY "timestamp"`,
		routeID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("postgis: history since: %w", err)
	}
	defer rows.Close()

	var out []models.RouteExposureHistory
	for rows.Next() {
		var h models.RouteExposureHistory
		var source string
		if err := rows.Scan(&h.ID, &h.RouteID, &h.Timestamp, &h.UPESScore, &h.MaxUPESAlongRoute, &source); err != nil {
			return nil, fmt.Errorf("postgis: scan history row: %w", err)
		}
		h.ScoreSource = models.ScoreSource(source)
		out = append(out, h)
	}
	return out, rows.Err()
}
