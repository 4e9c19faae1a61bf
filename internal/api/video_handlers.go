package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"vidtube/internal/models"
	"vidtube/internal/storage"
)

type createVideoRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	VideoFile   models.MediaAsset `json:"videoFile"`
	Thumbnail   models.MediaAsset `json:"thumbnail"`
	Duration    float64           `json:"duration"`
	IsPublished bool              `json:"isPublished"`
}

type updateVideoRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Thumbnail   *models.MediaAsset `json:"thumbnail"`
	IsPublished *bool              `json:"isPublished"`
}

type commentRequest struct {
	Content string `json:"content"`
}

// Videos handles the collection: listing published videos and publishing new
// catalog records for already-uploaded assets.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ownerID := ""
		if r.URL.Query().Get("owner") == "me" {
			user, ok := h.requireAuthenticatedUser(w, r)
			if !ok {
				return
			}
			ownerID = user.ID
		}
		videos, err := h.Store.ListVideos(r.Context(), ownerID)
		if err != nil {
			h.logger().Error("list videos failed", "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("list videos failed"))
			return
		}
		writeJSON(w, http.StatusOK, map[string][]models.Video{"videos": videos})
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req createVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		video, err := h.Store.CreateVideo(r.Context(), storage.CreateVideoParams{
			OwnerID:     user.ID,
			Title:       req.Title,
			Description: req.Description,
			VideoFile:   req.VideoFile,
			Thumbnail:   req.Thumbnail,
			Duration:    req.Duration,
			IsPublished: req.IsPublished,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]models.Video{"video": video})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// VideoByID dispatches /api/videos/{id} and its subresources, plus the two
// literal endpoints that live under the prefix: suggestions and signature.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/videos/"), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	parts := strings.Split(rest, "/")
	switch parts[0] {
	case "suggestions":
		h.suggestions(w, r)
		return
	case "signature":
		h.uploadSignature(w, r)
		return
	}
	videoID := parts[0]
	switch {
	case len(parts) == 1:
		h.videoRecord(w, r, videoID)
	case len(parts) == 2 && parts[1] == "view":
		h.recordView(w, r, videoID)
	case len(parts) == 2 && parts[1] == "comments":
		h.videoComments(w, r, videoID)
	case len(parts) == 3 && parts[1] == "comments":
		h.deleteComment(w, r, videoID, parts[2])
	case len(parts) == 2 && parts[1] == "like":
		h.toggleLike(w, r, videoID)
	case len(parts) == 2 && parts[1] == "likes":
		h.countLikes(w, r, videoID)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (h *Handler) videoRecord(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		video, found, err := h.Store.GetVideo(r.Context(), videoID)
		if err != nil {
			h.logger().Error("load video failed", "video_id", videoID, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("load video failed"))
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, storage.ErrVideoNotFound)
			return
		}
		if !video.IsPublished {
			user, ok := UserFromContext(r.Context())
			if !ok || user.ID != video.OwnerID {
				writeError(w, http.StatusNotFound, storage.ErrVideoNotFound)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]models.Video{"video": video})
	case http.MethodPatch:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		video, found, err := h.Store.GetVideo(r.Context(), videoID)
		if err != nil {
			h.logger().Error("load video failed", "video_id", videoID, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("load video failed"))
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, storage.ErrVideoNotFound)
			return
		}
		if video.OwnerID != user.ID {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		var req updateVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateVideo(r.Context(), videoID, storage.VideoUpdate{
			Title:       req.Title,
			Description: req.Description,
			Thumbnail:   req.Thumbnail,
			IsPublished: req.IsPublished,
		})
		if err != nil {
			if errors.Is(err, storage.ErrVideoNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]models.Video{"video": updated})
	case http.MethodDelete:
		h.deleteVideo(w, r, videoID)
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	video, found, err := h.Store.GetVideo(r.Context(), videoID)
	if err != nil {
		h.logger().Error("load video failed", "video_id", videoID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("load video failed"))
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, storage.ErrVideoNotFound)
		return
	}
	if video.OwnerID != user.ID {
		writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return
	}
	deleted, err := h.Store.DeleteVideo(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger().Error("delete video failed", "video_id", videoID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("delete video failed"))
		return
	}
	h.releaseVideoAssets(r.Context(), deleted)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// releaseVideoAssets destroys the video file and thumbnail concurrently.
// Asset cleanup is best-effort: the catalog record is already gone, so
// failures are logged for reconciliation rather than surfaced.
func (h *Handler) releaseVideoAssets(ctx context.Context, video models.Video) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	group, groupCtx := errgroup.WithContext(cleanupCtx)
	group.Go(func() error {
		return h.Media.Delete(groupCtx, video.VideoFile.PublicID, "video")
	})
	group.Go(func() error {
		return h.Media.Delete(groupCtx, video.Thumbnail.PublicID, "image")
	})
	go func() {
		defer cancel()
		if err := group.Wait(); err != nil {
			h.logger().Error("release video assets failed", "video_id", video.ID, "error", err)
		}
	}()
}

func (h *Handler) recordView(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	video, found, err := h.Store.GetVideo(r.Context(), videoID)
	if err != nil {
		h.logger().Error("load video failed", "video_id", videoID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("load video failed"))
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, storage.ErrVideoNotFound)
		return
	}
	// Serving the video never waits on bookkeeping.
	h.Watch.RecordViewBestEffort(r.Context(), user.ID, videoID)
	writeJSON(w, http.StatusOK, map[string]models.Video{"video": video})
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	videos, err := h.Store.SearchVideos(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger().Error("search videos failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("search videos failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Video{"videos": videos})
}

func (h *Handler) uploadSignature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	if !h.Media.Enabled() {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("media uploads not configured"))
		return
	}
	signature, err := h.Media.SignUpload(r.URL.Query().Get("folder"))
	if err != nil {
		h.logger().Error("sign upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("sign upload failed"))
		return
	}
	writeJSON(w, http.StatusOK, signature)
}

func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit"))
				return
			}
			limit = parsed
		}
		comments, err := h.Store.ListComments(r.Context(), videoID, limit)
		if err != nil {
			if errors.Is(err, storage.ErrVideoNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			h.logger().Error("list comments failed", "video_id", videoID, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("list comments failed"))
			return
		}
		writeJSON(w, http.StatusOK, map[string][]models.Comment{"comments": comments})
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req commentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		comment, err := h.Store.CreateComment(r.Context(), videoID, user.ID, req.Content)
		if err != nil {
			if errors.Is(err, storage.ErrVideoNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]models.Comment{"comment": comment})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// deleteComment allows the comment author or the video owner to remove a
// comment.
func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request, videoID, commentID string) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	comment, found, err := h.Store.GetComment(r.Context(), commentID)
	if err != nil {
		h.logger().Error("load comment failed", "comment_id", commentID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("load comment failed"))
		return
	}
	if !found || comment.VideoID != videoID {
		writeError(w, http.StatusNotFound, storage.ErrCommentNotFound)
		return
	}
	if comment.OwnerID != user.ID {
		video, videoFound, err := h.Store.GetVideo(r.Context(), videoID)
		if err != nil {
			h.logger().Error("load video failed", "video_id", videoID, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("load video failed"))
			return
		}
		if !videoFound || video.OwnerID != user.ID {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
	}
	if err := h.Store.DeleteComment(r.Context(), commentID); err != nil {
		if errors.Is(err, storage.ErrCommentNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger().Error("delete comment failed", "comment_id", commentID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("delete comment failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	liked, err := h.Store.ToggleVideoLike(r.Context(), videoID, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger().Error("toggle like failed", "video_id", videoID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("toggle like failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (h *Handler) countLikes(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	count, err := h.Store.CountVideoLikes(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger().Error("count likes failed", "video_id", videoID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("count likes failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"likes": count})
}
