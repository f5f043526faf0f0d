package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aeris-platform/aeris/internal/apierr"
)

// writeJSON encodes v as the response body with status, matching the
// teacher's explicit Content-Type/WriteHeader/Encode sequence
// (telemetryhttp.NewHealthHandler) rather than a framework render helper.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps err to an HTTP status via apierr.HTTPStatus and writes a
// minimal JSON body. Internal-kind errors are logged with detail but never
// echo the underlying cause to the client.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	kind := apierr.KindOf(err)
	status := apierr.HTTPStatus(kind)
	if kind == apierr.KindInternal && log != nil {
		log.Error("unhandled internal error", "err", err)
	}
	msg := err.Error()
	if kind == apierr.KindInternal {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}
