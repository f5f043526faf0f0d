package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/google/uuid"
)

func TestUserCreateGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, models.User{Email: "a@example.com", PasswordHash: "hash", ExposureSensitivityLevel: 3})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}

	got, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetUserByEmail returned different user")
	}

	if _, err := s.GetUserByEmail(ctx, "missing@example.com"); apierr.KindOf(err) != apierr.KindNotFound {
		t.Errorf("expected KindNotFound, got %v", apierr.KindOf(err))
	}
}

func TestSavedRouteLastScoreUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	r, err := s.CreateSavedRoute(ctx, models.SavedRoute{UserID: uuid.New(), ActivityType: domain.ActivityCommute})
	if err != nil {
		t.Fatalf("CreateSavedRoute: %v", err)
	}

	at := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	if err := s.UpdateSavedRouteLastScore(ctx, r.ID, 0.42, at); err != nil {
		t.Fatalf("UpdateSavedRouteLastScore: %v", err)
	}

	got, err := s.GetSavedRoute(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetSavedRoute: %v", err)
	}
	if got.LastUPESScore == nil || *got.LastUPESScore != 0.42 {
		t.Errorf("LastUPESScore = %v, want 0.42", got.LastUPESScore)
	}
	if got.LastUPESUpdatedAt == nil || !got.LastUPESUpdatedAt.Equal(at) {
		t.Errorf("LastUPESUpdatedAt = %v, want %v", got.LastUPESUpdatedAt, at)
	}
}

func TestRouteExposureHistoryLatestTwoOrdersNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	routeID := uuid.New()

	base := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.AppendRouteExposureHistory(ctx, models.RouteExposureHistory{
			RouteID:     routeID,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			UPESScore:   float64(i) * 0.1,
			ScoreSource: models.ScoreSourceScheduled,
		})
		if err != nil {
			t.Fatalf("AppendRouteExposureHistory: %v", err)
		}
	}

	current, previous, hasCurrent, hasPrevious := s.LatestTwoRouteExposureHistory(ctx, routeID)
	if !hasCurrent || !hasPrevious {
		t.Fatal("expected both current and previous to be present")
	}
	if current.UPESScore != 0.2 || previous.UPESScore != 0.1 {
		t.Errorf("current=%v previous=%v, want 0.2 then 0.1", current.UPESScore, previous.UPESScore)
	}
}

func TestAlertExistsInWindowDedup(t *testing.T) {
	s := New()
	ctx := context.Background()
	routeID := uuid.New()
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)

	_, err := s.AppendAlertLog(ctx, models.AlertLog{
		UserID: uuid.New(), RouteID: routeID, AlertType: domain.AlertRouteDeterioration,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("AppendAlertLog: %v", err)
	}

	exists, err := s.AlertExistsInWindow(ctx, routeID, domain.AlertRouteDeterioration, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("AlertExistsInWindow: %v", err)
	}
	if !exists {
		t.Error("expected an existing alert in window")
	}

	exists, err = s.AlertExistsInWindow(ctx, routeID, domain.AlertHazard, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("AlertExistsInWindow: %v", err)
	}
	if exists {
		t.Error("did not expect a hazard alert to exist")
	}
}

func TestGridCellsInWindowFiltersByGasAndTime(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	err := s.InsertCells(ctx, []models.PollutionGridCell{
		{Timestamp: base, GasType: domain.GasNO2, PollutionValue: 1},
		{Timestamp: base.Add(time.Hour), GasType: domain.GasNO2, PollutionValue: 2},
		{Timestamp: base, GasType: domain.GasO3, PollutionValue: 3},
	})
	if err != nil {
		t.Fatalf("InsertCells: %v", err)
	}

	got, err := s.CellsInWindow(ctx, domain.GasNO2, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("CellsInWindow: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}

	latest, err := s.LatestTimestamp(ctx, domain.GasNO2)
	if err != nil {
		t.Fatalf("LatestTimestamp: %v", err)
	}
	if !latest.Equal(base.Add(time.Hour)) {
		t.Errorf("LatestTimestamp = %v, want %v", latest, base.Add(time.Hour))
	}
}
