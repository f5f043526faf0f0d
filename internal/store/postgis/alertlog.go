package postgis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/google/uuid"
)

// AppendAlertLog marshals a.AlertMetadata into the alert_log.metadata
// column. The Go field keeps the AlertMetadata name for clarity at call
// sites that already talk about alerts; the column itself is just
// metadata, so this function and ListAlertsByUser are the one place that
// alias is made explicit rather than leaking "alert_" into every query.
func (s *Store) AppendAlertLog(ctx context.Context, a models.AlertLog) (models.AlertLog, error) {
	metadataColumn, err := json.Marshal(a.AlertMetadata)
	if err != nil {
		return models.AlertLog{}, apierr.Internal(err, "marshal alert metadata")
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO alert_log (user_id, route_id, alert_type, score_before, score_after, threshold, metadata, notified_channels)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
		a.UserID, a.RouteID, string(a.AlertType), a.ScoreBefore, a.ScoreAfter, a.Threshold, metadataColumn, a.NotifiedChannels,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return models.AlertLog{}, fmt.Errorf("postgis: append alert log: %w", err)
	}
	return a, nil
}

func (s *Store) ListAlertsByUser(ctx context.Context, userID uuid.UUID, routeID *uuid.UUID, alertType *domain.AlertType, since time.Time) ([]models.AlertLog, error) {
	query := `SELECT id, user_id, route_id, alert_type, score_before, score_after, threshold, metadata, notified_channels, created_at
	          FROM alert_log WHERE user_id = $1 AND created_at >= $2`
	args := []any{userID, since}
	if routeID != nil {
		args = append(args, *routeID)
		query += fmt.Sprintf(" AND route_id = $%d", len(args))
	}
	if alertType != nil {
		args = append(args, string(*alertType))
		query += fmt.Sprintf(" AND alert_type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgis: list alerts by user: %w", err)
	}
	defer rows.Close()

	var out []models.AlertLog
	for rows.Next() {
		var a models.AlertLog
		var alertTypeStr string
		var meta []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.RouteID, &alertTypeStr, &a.ScoreBefore, &a.ScoreAfter,
			&a.Threshold, &meta, &a.NotifiedChannels, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgis: scan alert log row: %w", err)
		}
		a.AlertType = domain.AlertType(alertTypeStr)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.AlertMetadata); err != nil {
				return nil, apierr.Internal(err, "unmarshal alert metadata")
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AlertExistsInWindow(ctx context.Context, routeID uuid.UUID, alertType domain.AlertType, since time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM alert_log WHERE route_id = $1 AND alert_type = $2 AND created_at >= $3)`,
		routeID, string(alertType), since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgis: exists in window: %w", err)
	}
	return exists, nil
}
