package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vidtube/internal/auth"
	"vidtube/internal/models"
	"vidtube/internal/storage"
)

type updateMeRequest struct {
	FullName   *string            `json:"fullName"`
	Avatar     *models.MediaAsset `json:"avatar"`
	CoverImage *models.MediaAsset `json:"coverImage"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Me dispatches the /api/users/me subtree: account updates, password change,
// and the hydrated watch history.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/me"), "/")
	switch rest {
	case "":
		h.updateMe(w, r)
	case "password":
		h.changePassword(w, r)
	case "history":
		h.watchHistory(w, r)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.Store.UpdateUser(r.Context(), user.ID, storage.UserUpdate{
		FullName:   req.FullName,
		Avatar:     req.Avatar,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.PublicUser{"user": updated.Public()})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}
	if err := h.Store.SetUserPassword(r.Context(), user.ID, req.NewPassword); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// watchHistory hydrates the stored id list into full records, preserving the
// most-recently-watched-first order. Ids whose videos have since been deleted
// are skipped.
func (h *Handler) watchHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	ids, err := h.Store.UserWatchHistory(r.Context(), user.ID)
	if err != nil {
		h.logger().Error("load watch history failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("load watch history failed"))
		return
	}
	entries := make([]models.WatchHistoryEntry, 0, len(ids))
	for _, videoID := range ids {
		video, found, err := h.Store.GetVideo(r.Context(), videoID)
		if err != nil {
			h.logger().Error("hydrate watch history failed", "video_id", videoID, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("load watch history failed"))
			return
		}
		if !found {
			continue
		}
		owner, found, err := h.Store.GetUser(r.Context(), video.OwnerID)
		if err != nil {
			h.logger().Error("hydrate watch history failed", "video_id", videoID, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("load watch history failed"))
			return
		}
		entry := models.WatchHistoryEntry{Video: video}
		if found {
			entry.Owner = owner.Public()
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, map[string][]models.WatchHistoryEntry{"history": entries})
}
