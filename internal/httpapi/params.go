package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
)

// decodeBody JSON-decodes r's body into v, mapping malformed JSON to a
// ValidationError so handlers never return a raw decode error to clients.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.Validation("malformed request body: %v", err)
	}
	return nil
}

// param reads a value from either the query string or a parsed form body,
// so the same handler serves both GET query params and POST form fields for
// /api/route/optimized.
func param(r *http.Request, name string) string {
	if v := r.FormValue(name); v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}

func requireFloat(r *http.Request, name string) (float64, error) {
	raw := param(r, name)
	if raw == "" {
		return 0, apierr.Validation("missing required parameter %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apierr.Validation("parameter %q must be a number, got %q", name, raw)
	}
	return v, nil
}

func optionalFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := param(r, name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apierr.Validation("parameter %q must be a number, got %q", name, raw)
	}
	return v, nil
}

func optionalInt(r *http.Request, name string, def int) (int, error) {
	raw := param(r, name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.Validation("parameter %q must be an integer, got %q", name, raw)
	}
	return v, nil
}

func optionalBool(r *http.Request, name string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(param(r, name)))
	switch raw {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// parseGases splits a comma-separated gases param into domain.GasType
// values, defaulting to every known gas when absent. Unknown tokens are
// dropped rather than rejected, since this field only narrows a query.
func parseGases(r *http.Request) []domain.GasType {
	raw := param(r, "gases")
	if raw == "" {
		return domain.AllGases
	}
	known := make(map[domain.GasType]bool, len(domain.AllGases))
	for _, g := range domain.AllGases {
		known[g] = true
	}
	var out []domain.GasType
	for _, tok := range strings.Split(raw, ",") {
		g := domain.GasType(strings.ToUpper(strings.TrimSpace(tok)))
		if known[g] {
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return domain.AllGases
	}
	return out
}
