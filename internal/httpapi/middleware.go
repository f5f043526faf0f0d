package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/models"
)

type contextKey string

const userContextKey contextKey = "aeris-user"

// requireAuth validates the Bearer JWT and loads the user row, per spec
// §4.6's get_current_user contract; unauthenticated or invalid requests
// fail with 401 before the route handler ever runs.
func (h *handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, h.log, apierr.Auth("missing bearer token"))
			return
		}
		userID, err := h.d.Tokens.VerifyToken(token)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		user, err := h.d.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			writeError(w, h.log, apierr.Auth("user for token not found"))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser reads the user loaded by requireAuth. Only safe to call from
// handlers mounted behind that middleware.
func currentUser(r *http.Request) models.User {
	u, _ := r.Context().Value(userContextKey).(models.User)
	return u
}
