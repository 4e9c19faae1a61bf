package api

import (
	"errors"
	"fmt"
	"net/http"

	"vidtube/internal/auth"
	"vidtube/internal/models"
	"vidtube/internal/storage"
)

type signupRequest struct {
	Username   string            `json:"username"`
	Email      string            `json:"email"`
	FullName   string            `json:"fullName"`
	Password   string            `json:"password"`
	Avatar     models.MediaAsset `json:"avatar"`
	CoverImage models.MediaAsset `json:"coverImage"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	User        models.PublicUser `json:"user"`
	AccessToken string            `json:"accessToken"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.CreateUser(r.Context(), storage.CreateUserParams{
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		Avatar:     req.Avatar,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]models.PublicUser{"user": user.Public()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pair, user, err := h.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
			return
		}
		h.logger().Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("login failed"))
		return
	}
	h.setAuthCookies(w, r, pair)
	writeJSON(w, http.StatusOK, sessionResponse{User: user.Public(), AccessToken: pair.AccessToken})
}

// Refresh rotates the token pair. The refresh token is read from its cookie
// first, falling back to the request body for non-browser clients.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	token := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil {
			token = req.RefreshToken
		}
	}
	pair, err := h.Sessions.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingToken),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenReused),
			errors.Is(err, auth.ErrUserNotFound):
			h.clearAuthCookies(w, r)
			writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		default:
			h.logger().Error("refresh failed", "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("refresh failed"))
		}
		return
	}
	h.setAuthCookies(w, r, pair)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": pair.AccessToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if user, err := h.AuthenticateRequest(r); err == nil {
		if err := h.Sessions.Logout(r.Context(), user.ID); err != nil {
			h.logger().Error("logout failed", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("logout failed"))
			return
		}
	}
	// Cookies are cleared even when the token no longer resolves; logout is
	// idempotent from the client's point of view.
	h.clearAuthCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, err := h.AuthenticateRequest(r)
	if err != nil {
		WriteAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.PublicUser{"user": user.Public()})
}
