package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/routing"
	"github.com/aeris-platform/aeris/internal/store/cache"
)

type routesResponse struct {
	Routes []routing.Route `json:"routes"`
}

func (h *handlers) parseRouteRequest(r *http.Request) (routing.Request, error) {
	startLat, err := requireFloat(r, "start_lat")
	if err != nil {
		return routing.Request{}, err
	}
	startLon, err := requireFloat(r, "start_lon")
	if err != nil {
		return routing.Request{}, err
	}
	endLat, err := requireFloat(r, "end_lat")
	if err != nil {
		return routing.Request{}, err
	}
	endLon, err := requireFloat(r, "end_lon")
	if err != nil {
		return routing.Request{}, err
	}
	alternatives, err := optionalInt(r, "alternatives", 0)
	if err != nil {
		return routing.Request{}, err
	}
	if alternatives < 0 || alternatives > 10 {
		return routing.Request{}, apierr.Validation("alternatives must be 0..10")
	}
	mode := param(r, "mode")
	return routing.Request{
		StartLat: startLat, StartLon: startLon, EndLat: endLat, EndLon: endLon,
		Mode: mode, Alternatives: alternatives,
	}, nil
}

// routeOptimized handles GET/POST /api/route/optimized, caching the
// response under a deterministic route_opt:{...}:{mode} key so a second
// identical call returns the cached body instead of rebuilding the graph.
func (h *handlers) routeOptimized(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRouteRequest(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	key := cache.RouteOptKey(req.StartLat, req.StartLon, req.EndLat, req.EndLon, req.Mode)
	if cached, ok := h.d.Cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(cached))
		return
	}

	if h.d.Routing == nil {
		writeError(w, h.log, apierr.FeatureDisabled("route optimization is disabled"))
		return
	}
	result, err := h.d.Routing.Route(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	resp := routesResponse{Routes: result.Routes}
	if encoded, err := json.Marshal(resp); err == nil {
		h.d.Cache.Set(r.Context(), key, string(encoded), h.d.Config.Route.ResultCacheTTL)
	}
	writeJSON(w, http.StatusOK, resp)
}

// routeAnalyze handles POST /api/route/analyze: a form-based route query
// that delegates to the optimized engine when use_optimized=true, otherwise
// returns a single straight best-effort route from the same engine with
// alternatives forced to 0.
func (h *handlers) routeAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRouteRequest(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if !optionalBool(r, "use_optimized", false) {
		req.Alternatives = 0
	}

	if h.d.Routing == nil {
		writeError(w, h.log, apierr.FeatureDisabled("route optimization is disabled"))
		return
	}
	result, err := h.d.Routing.Route(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, routesResponse{Routes: result.Routes})
}
