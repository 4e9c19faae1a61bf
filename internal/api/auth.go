package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vidtube/internal/auth"
	"vidtube/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ExtractToken pulls the access token from the Authorization header or the
// access cookie. The header wins when both are present.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(accessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthenticateRequest resolves the access token on the request into the
// account it identifies. Expired tokens surface auth.ErrSessionExpired so the
// middleware can signal clients to refresh.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, auth.ErrMissingToken
	}
	return h.Sessions.Authenticate(r.Context(), token)
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.User{}, false
	}
	return user, true
}

// WriteAuthError maps an authentication failure to its response, keeping the
// body generic so failures reveal nothing about why the token was rejected.
func WriteAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrSessionExpired) {
		writeErrorCode(w, http.StatusUnauthorized, "token_expired", fmt.Errorf("session expired"))
		return
	}
	writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
}
