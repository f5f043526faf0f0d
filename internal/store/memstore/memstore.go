// Package memstore implements store.Store entirely in memory, for unit
// tests that exercise engines without a database: the repository
// interfaces are injected so tests can supply this in-memory fake instead
// of a live PostGIS instance.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/aeris-platform/aeris/internal/store"
	"github.com/google/uuid"
)

// Store is a goroutine-safe in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	cells      []models.PollutionGridCell
	nextCellID int64

	files []models.NetcdfFile

	users map[uuid.UUID]models.User

	routes map[uuid.UUID]models.SavedRoute

	history    []models.RouteExposureHistory
	nextHistID int64

	alerts      []models.AlertLog
	nextAlertID int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:  make(map[uuid.UUID]models.User),
		routes: make(map[uuid.UUID]models.SavedRoute),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) InsertCells(ctx context.Context, cells []models.PollutionGridCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cells {
		s.nextCellID++
		c.ID = s.nextCellID
		c.CreatedAt = c.Timestamp
		s.cells = append(s.cells, c)
	}
	return nil
}

func (s *Store) LatestTimestamp(ctx context.Context, gas domain.GasType) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest time.Time
	for _, c := range s.cells {
		if c.GasType == gas && c.Timestamp.After(latest) {
			latest = c.Timestamp
		}
	}
	return latest, nil
}

func (s *Store) CellsInWindow(ctx context.Context, gas domain.GasType, start, end time.Time) ([]models.PollutionGridCell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PollutionGridCell
	for _, c := range s.cells {
		if c.GasType == gas && !c.Timestamp.Before(start) && !c.Timestamp.After(end) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) InsertFile(ctx context.Context, f models.NetcdfFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = int64(len(s.files) + 1)
	s.files = append(s.files, f)
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Unix(0, 0).UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apierr.NotFound("user with email %s not found", email)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, apierr.NotFound("user %s not found", id)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return apierr.NotFound("user %s not found", u.ID)
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) CreateSavedRoute(ctx context.Context, r models.SavedRoute) (models.SavedRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Unix(0, 0).UTC()
	}
	s.routes[r.ID] = r
	return r, nil
}

func (s *Store) GetSavedRoute(ctx context.Context, id uuid.UUID) (models.SavedRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return models.SavedRoute{}, apierr.NotFound("saved route %s not found", id)
	}
	return r, nil
}

func (s *Store) ListSavedRoutesByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SavedRoute
	for _, r := range s.routes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListAllSavedRoutes(ctx context.Context) ([]models.SavedRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SavedRoute
	for _, r := range s.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteSavedRoute(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[id]; !ok {
		return apierr.NotFound("saved route %s not found", id)
	}
	delete(s.routes, id)
	return nil
}

func (s *Store) UpdateSavedRouteLastScore(ctx context.Context, id uuid.UUID, score float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return apierr.NotFound("saved route %s not found", id)
	}
	r.LastUPESScore = &score
	r.LastUPESUpdatedAt = &at
	s.routes[id] = r
	return nil
}

func (s *Store) AppendRouteExposureHistory(ctx context.Context, h models.RouteExposureHistory) (models.RouteExposureHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHistID++
	h.ID = s.nextHistID
	s.history = append(s.history, h)
	return h, nil
}

func (s *Store) LatestTwoRouteExposureHistory(ctx context.Context, routeID uuid.UUID) (current, previous models.RouteExposureHistory, hasCurrent, hasPrevious bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []models.RouteExposureHistory
	for _, h := range s.history {
		if h.RouteID == routeID {
			matches = append(matches, h)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Timestamp.After(matches[j].Timestamp) })
	if len(matches) >= 1 {
		current, hasCurrent = matches[0], true
	}
	if len(matches) >= 2 {
		previous, hasPrevious = matches[1], true
	}
	return current, previous, hasCurrent, hasPrevious
}

func (s *Store) RouteExposureHistorySince(ctx context.Context, routeID uuid.UUID, since time.Time) ([]models.RouteExposureHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RouteExposureHistory
	for _, h := range s.history {
		if h.RouteID == routeID && !h.Timestamp.Before(since) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) AppendAlertLog(ctx context.Context, a models.AlertLog) (models.AlertLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAlertID++
	a.ID = s.nextAlertID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Unix(0, 0).UTC()
	}
	s.alerts = append(s.alerts, a)
	return a, nil
}

func (s *Store) ListAlertsByUser(ctx context.Context, userID uuid.UUID, routeID *uuid.UUID, alertType *domain.AlertType, since time.Time) ([]models.AlertLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AlertLog
	for _, a := range s.alerts {
		if a.UserID != userID || a.CreatedAt.Before(since) {
			continue
		}
		if routeID != nil && a.RouteID != *routeID {
			continue
		}
		if alertType != nil && a.AlertType != *alertType {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AlertExistsInWindow(ctx context.Context, routeID uuid.UUID, alertType domain.AlertType, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.RouteID == routeID && a.AlertType == alertType && !a.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}
