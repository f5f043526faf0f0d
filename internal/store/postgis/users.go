package postgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	prefs, err := json.Marshal(u.NotificationPreferences)
	if err != nil {
		return models.User{}, apierr.Internal(err, "marshal notification preferences")
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, exposure_sensitivity_level, notification_preferences)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, u.ExposureSensitivityLevel, prefs,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("postgis: create user: %w", err)
	}
	return s.GetUserByID(ctx, u.ID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, exposure_sensitivity_level, notification_preferences, created_at
		 FROM users WHERE email = $1`, email,
	)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, exposure_sensitivity_level, notification_preferences, created_at
		 FROM users WHERE id = $1`, id,
	)
	return scanUser(row)
}

func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	prefs, err := json.Marshal(u.NotificationPreferences)
	if err != nil {
		return apierr.Internal(err, "marshal notification preferences")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET exposure_sensitivity_level = $1, notification_preferences = $2 WHERE id = $3`,
		u.ExposureSensitivityLevel, prefs, u.ID,
	)
	if err != nil {
		return fmt.Errorf("postgis: update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("user %s not found", u.ID)
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	var prefs []byte
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.ExposureSensitivityLevel, &prefs, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, apierr.NotFound("user not found")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("postgis: scan user: %w", err)
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.NotificationPreferences); err != nil {
			return models.User{}, apierr.Internal(err, "unmarshal notification preferences")
		}
	}
	return u, nil
}
