package httpapi

import (
	"net/http"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/auth"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID                       string         `json:"id"`
	Email                    string         `json:"email"`
	ExposureSensitivityLevel int            `json:"exposure_sensitivity_level"`
	SensitivityLabel         string         `json:"sensitivity_label"`
	NotificationPreferences  map[string]bool `json:"notification_preferences"`
	CreatedAt                string         `json:"created_at"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:                       u.ID.String(),
		Email:                    u.Email,
		ExposureSensitivityLevel: u.ExposureSensitivityLevel,
		SensitivityLabel:         domain.SensitivityLabel(u.ExposureSensitivityLevel),
		NotificationPreferences:  u.NotificationPreferences,
		CreatedAt:                u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// register handles POST /auth/register: {email, password} -> 201 user or
// 409 if the email is already registered. The 409 status is written
// directly rather than through apierr, since apierr.Kind has no "conflict"
// entry and this is the one place that distinction matters.
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, h.log, apierr.Validation("email and password are required"))
		return
	}

	if _, err := h.d.Store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeJSON(w, http.StatusConflict, errorBody{Error: "email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "hash password"))
		return
	}

	user, err := h.d.Store.CreateUser(r.Context(), models.User{
		Email:                    req.Email,
		PasswordHash:             hash,
		ExposureSensitivityLevel: 1,
		NotificationPreferences:  map[string]bool{"email": true, "push": false, "in_app": true},
		CreatedAt:                h.d.now(),
	})
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "create user"))
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// login handles POST /auth/login: {email, password} -> {access_token, token_type}.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	user, err := h.d.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, h.log, apierr.Auth("invalid email or password"))
		return
	}

	token, err := h.d.Tokens.IssueToken(user.ID)
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "issue token"))
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// getMe handles GET /auth/me.
func (h *handlers) getMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserResponse(currentUser(r)))
}

type patchMeRequest struct {
	NotificationPreferences *map[string]bool `json:"notification_preferences"`
	ExposureSensitivityLevel *int             `json:"exposure_sensitivity_level"`
}

// patchMe handles PATCH /auth/me: body may include notification_preferences
// and/or exposure_sensitivity_level (1..5).
func (h *handlers) patchMe(w http.ResponseWriter, r *http.Request) {
	var req patchMeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	user := currentUser(r)
	if req.ExposureSensitivityLevel != nil {
		lvl := *req.ExposureSensitivityLevel
		if lvl < 1 || lvl > 5 {
			writeError(w, h.log, apierr.Validation("exposure_sensitivity_level must be 1..5"))
			return
		}
		user.ExposureSensitivityLevel = lvl
	}
	if req.NotificationPreferences != nil {
		user.NotificationPreferences = *req.NotificationPreferences
	}
	if err := h.d.Store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
