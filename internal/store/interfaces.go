// Package store declares the repository interfaces every engine depends on,
// injected rather than read off a global connection. internal/store/postgis
// implements them against PostGIS; internal/store/memstore implements them
// in memory for unit tests, the way the teacher's pipeline tests construct
// fake fetchers/queues rather than hitting the network.
package store

import (
	"context"
	"time"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/google/uuid"
)

// GridStore persists and queries pollution_grid rows.
type GridStore interface {
	// InsertCells bulk-inserts a chunk of cells inside a single transaction,
	// one transaction per bulk-insert chunk.
	InsertCells(ctx context.Context, cells []models.PollutionGridCell) error
	// LatestTimestamp returns the most recent timestamp ingested for gas, or
	// the zero time if none exists.
	LatestTimestamp(ctx context.Context, gas domain.GasType) (time.Time, error)
	// CellsInWindow returns every cell for gas with timestamp in [start, end].
	CellsInWindow(ctx context.Context, gas domain.GasType, start, end time.Time) ([]models.PollutionGridCell, error)
}

// NetcdfFileStore indexes raw satellite files parked in object storage.
type NetcdfFileStore interface {
	InsertFile(ctx context.Context, f models.NetcdfFile) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	UpdateUser(ctx context.Context, u models.User) error
}

// SavedRouteStore persists user-owned saved routes.
type SavedRouteStore interface {
	CreateSavedRoute(ctx context.Context, r models.SavedRoute) (models.SavedRoute, error)
	GetSavedRoute(ctx context.Context, id uuid.UUID) (models.SavedRoute, error)
	ListSavedRoutesByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedRoute, error)
	ListAllSavedRoutes(ctx context.Context) ([]models.SavedRoute, error)
	DeleteSavedRoute(ctx context.Context, id uuid.UUID) error
	UpdateSavedRouteLastScore(ctx context.Context, id uuid.UUID, score float64, at time.Time) error
}

// RouteExposureHistoryStore persists the immutable exposure event log.
type RouteExposureHistoryStore interface {
	AppendRouteExposureHistory(ctx context.Context, h models.RouteExposureHistory) (models.RouteExposureHistory, error)
	// LatestTwoRouteExposureHistory returns the current and previous history
	// rows for a route, newest first. Either or both may be absent
	// (ok=false).
	LatestTwoRouteExposureHistory(ctx context.Context, routeID uuid.UUID) (current, previous models.RouteExposureHistory, hasCurrent, hasPrevious bool)
	// RouteExposureHistorySince returns every row for routeID with
	// timestamp >= since, oldest first.
	RouteExposureHistorySince(ctx context.Context, routeID uuid.UUID, since time.Time) ([]models.RouteExposureHistory, error)
}

// AlertLogStore persists immutable alert records.
type AlertLogStore interface {
	AppendAlertLog(ctx context.Context, a models.AlertLog) (models.AlertLog, error)
	ListAlertsByUser(ctx context.Context, userID uuid.UUID, routeID *uuid.UUID, alertType *domain.AlertType, since time.Time) ([]models.AlertLog, error)
	// AlertExistsInWindow reports whether an alert of this type for this
	// route was already recorded at or after since, used to prevent
	// duplicate deterioration rows within the same hour.
	AlertExistsInWindow(ctx context.Context, routeID uuid.UUID, alertType domain.AlertType, since time.Time) (bool, error)
}

// Store aggregates every repository an engine might need; concrete backends
// (postgis.Store, memstore.Store) implement all of it.
type Store interface {
	GridStore
	NetcdfFileStore
	UserStore
	SavedRouteStore
	RouteExposureHistoryStore
	AlertLogStore
}
