package httpapi

import (
	"errors"
	"net/http"
	"time"

	"counselbot.org/internal/audit"
	"counselbot.org/internal/auth"
	"counselbot.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string         `json:"message"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      auth.Principal `json:"user"`
}

type meResponse struct {
	Message string         `json:"message"`
	User    auth.Principal `json:"user"`
}

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInternal           = "Internal server error"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, a.maxBodyBytes); err != nil {
		obs.ObserveLogin(obs.LoginBadRequest)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if !a.credentials.Configured() {
		obs.ObserveLogin(obs.LoginUnavailable)
		obs.Logger().Error("login rejected: DATABASE_URL not set")
		writeErrorDetails(w, r, http.StatusInternalServerError, "Database configuration missing", "DATABASE_URL not set")
		return
	}
	if !a.sessions.Configured() {
		obs.ObserveLogin(obs.LoginUnavailable)
		obs.Logger().Error("login rejected: JWT_SECRET not set")
		writeErrorDetails(w, r, http.StatusInternalServerError, "JWT configuration missing", "JWT_SECRET not set")
		return
	}

	email := req.Email
	principal, err := a.credentials.Verify(r.Context(), email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			obs.ObserveLogin(obs.LoginInvalid)
			_ = audit.LogEvent(r.Context(), audit.EventLoginFailed, map[string]any{"email": email})
			writeError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
		default:
			obs.ObserveLogin(obs.LoginUnavailable)
			obs.Logger().WithError(err).Error("login failed")
			writeError(w, r, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	token, claims, err := a.sessions.IssueClaims(principal)
	if err != nil {
		obs.ObserveLogin(obs.LoginUnavailable)
		obs.Logger().WithError(err).Error("token issuance failed")
		writeError(w, r, http.StatusInternalServerError, msgInternal)
		return
	}

	obs.ObserveLogin(obs.LoginSuccess)
	ctx := auth.ContextWithPrincipal(r.Context(), principal)
	_ = audit.LogEvent(ctx, audit.EventLoginSucceeded, map[string]any{
		"email":      principal.Email,
		"jti":        claims.ID,
		"expires_at": claims.ExpiresAtTime().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: claims.ExpiresAtTime(),
		User:      principal,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "No token provided")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Message: "User data retrieved",
		User:    principal,
	})
}
