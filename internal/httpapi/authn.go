package httpapi

import (
	"errors"
	"net/http"

	"counselbot.org/internal/auth"
	"counselbot.org/internal/obs"
)

const authHeader = "Authorization"

// requireAuth resolves the live principal for the bearer token and stores it
// in the request context. Every failure the client can cause is a 401.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.ObserveTokenVerification("missing")
			unauthorized(w, r, "No token provided")
			return
		}
		if !a.sessions.Configured() {
			obs.Logger().Error("token verification rejected: JWT_SECRET not set")
			writeErrorDetails(w, r, http.StatusInternalServerError, "JWT configuration missing", "JWT_SECRET not set")
			return
		}
		if !a.credentials.Configured() {
			obs.Logger().Error("token verification rejected: DATABASE_URL not set")
			writeErrorDetails(w, r, http.StatusInternalServerError, "Database configuration missing", "DATABASE_URL not set")
			return
		}

		principal, claims, err := a.authz.AuthorizeToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				reason := auth.TokenFailureReason(err)
				obs.ObserveTokenVerification(reason)
				obs.Logger().WithField("reason", reason).WithField("request_id", RequestIDFromContext(r.Context())).
					Info("token rejected")
				unauthorized(w, r, "Invalid token")
			case errors.Is(err, auth.ErrUnauthenticated):
				obs.ObserveTokenVerification("unknown_principal")
				unauthorized(w, r, "User not found")
			default:
				obs.ObserveTokenVerification("error")
				obs.Logger().WithError(err).Error("authorization failed")
				writeError(w, r, http.StatusInternalServerError, msgInternal)
			}
			return
		}

		obs.ObserveTokenVerification("")
		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="counselbot"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}
