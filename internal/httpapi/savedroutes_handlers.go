package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
)

type savedRouteRequest struct {
	OriginLat      float64 `json:"origin_lat"`
	OriginLon      float64 `json:"origin_lon"`
	DestinationLat float64 `json:"destination_lat"`
	DestinationLon float64 `json:"destination_lon"`
	ActivityType   string  `json:"activity_type"`
}

type savedRouteResponse struct {
	ID                string   `json:"id"`
	OriginLat         float64  `json:"origin_lat"`
	OriginLon         float64  `json:"origin_lon"`
	DestinationLat    float64  `json:"destination_lat"`
	DestinationLon    float64  `json:"destination_lon"`
	ActivityType      string   `json:"activity_type"`
	LastUPESScore     *float64 `json:"last_upes_score,omitempty"`
	LastUPESUpdatedAt *string  `json:"last_upes_updated_at,omitempty"`
}

func toSavedRouteResponse(r models.SavedRoute) savedRouteResponse {
	resp := savedRouteResponse{
		ID: r.ID.String(), OriginLat: r.OriginLat, OriginLon: r.OriginLon,
		DestinationLat: r.DestinationLat, DestinationLon: r.DestinationLon,
		ActivityType: string(r.ActivityType), LastUPESScore: r.LastUPESScore,
	}
	if r.LastUPESUpdatedAt != nil {
		s := r.LastUPESUpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.LastUPESUpdatedAt = &s
	}
	return resp
}

// createSavedRoute handles POST /api/saved-routes.
func (h *handlers) createSavedRoute(w http.ResponseWriter, r *http.Request) {
	var req savedRouteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	activity := domain.ActivityType(domain.NormalizeMode(req.ActivityType))

	route, err := h.d.Store.CreateSavedRoute(r.Context(), models.SavedRoute{
		UserID: currentUser(r).ID, OriginLat: req.OriginLat, OriginLon: req.OriginLon,
		DestinationLat: req.DestinationLat, DestinationLon: req.DestinationLon,
		ActivityType: activity, CreatedAt: h.d.now(),
	})
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "create saved route"))
		return
	}
	writeJSON(w, http.StatusCreated, toSavedRouteResponse(route))
}

// listSavedRoutes handles GET /api/saved-routes, scoped to the caller.
func (h *handlers) listSavedRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.d.Store.ListSavedRoutesByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "list saved routes"))
		return
	}
	out := make([]savedRouteResponse, 0, len(routes))
	for _, rt := range routes {
		out = append(out, toSavedRouteResponse(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

// loadOwnedRoute fetches the route named by the {id} path param and
// verifies it belongs to the caller, returning an opaque NotFound for both
// "missing" and "belongs to someone else" so neither case leaks the route's
// existence to a caller who doesn't own it.
func (h *handlers) loadOwnedRoute(r *http.Request) (models.SavedRoute, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return models.SavedRoute{}, apierr.Validation("invalid route id")
	}
	route, err := h.d.Store.GetSavedRoute(r.Context(), id)
	if err != nil {
		return models.SavedRoute{}, apierr.NotFound("saved route not found")
	}
	if route.UserID != currentUser(r).ID {
		return models.SavedRoute{}, apierr.Forbidden("saved route not found")
	}
	return route, nil
}

// getSavedRoute handles GET /api/saved-routes/{id}.
func (h *handlers) getSavedRoute(w http.ResponseWriter, r *http.Request) {
	route, err := h.loadOwnedRoute(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavedRouteResponse(route))
}

// deleteSavedRoute handles DELETE /api/saved-routes/{id}.
func (h *handlers) deleteSavedRoute(w http.ResponseWriter, r *http.Request) {
	route, err := h.loadOwnedRoute(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.d.Store.DeleteSavedRoute(r.Context(), route.ID); err != nil {
		writeError(w, h.log, apierr.Internal(err, "delete saved route"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
