package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
)

type alertResponse struct {
	ID               int64          `json:"id"`
	RouteID          string         `json:"route_id"`
	AlertType        string         `json:"alert_type"`
	ScoreBefore      float64        `json:"score_before"`
	ScoreAfter       float64        `json:"score_after"`
	Threshold        float64        `json:"threshold"`
	AlertMetadata    map[string]any `json:"alert_metadata,omitempty"`
	NotifiedChannels []string       `json:"notified_channels"`
	CreatedAt        string         `json:"created_at"`
}

func toAlertResponse(a models.AlertLog) alertResponse {
	return alertResponse{
		ID: a.ID, RouteID: a.RouteID.String(), AlertType: string(a.AlertType),
		ScoreBefore: a.ScoreBefore, ScoreAfter: a.ScoreAfter, Threshold: a.Threshold,
		AlertMetadata: a.AlertMetadata, NotifiedChannels: a.NotifiedChannels,
		CreatedAt: a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// listAlerts handles GET /api/alerts?route_id=&alert_type=&days=.
func (h *handlers) listAlerts(w http.ResponseWriter, r *http.Request) {
	days, err := optionalInt(r, "days", 7)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if days < 1 || days > 90 {
		writeError(w, h.log, apierr.Validation("days must be in 1..90"))
		return
	}

	var routeID *uuid.UUID
	if raw := param(r, "route_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, h.log, apierr.Validation("invalid route_id"))
			return
		}
		routeID = &id
	}
	var alertType *domain.AlertType
	if raw := param(r, "alert_type"); raw != "" {
		t := domain.AlertType(raw)
		alertType = &t
	}

	since := h.d.now().Add(-time.Duration(days) * 24 * time.Hour)
	alerts, err := h.d.Store.ListAlertsByUser(r.Context(), currentUser(r).ID, routeID, alertType, since)
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "list alerts"))
		return
	}
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}
