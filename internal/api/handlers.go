package api

import (
	"log/slog"
	"net/http"

	"vidtube/internal/auth"
	"vidtube/internal/media"
	"vidtube/internal/storage"
	"vidtube/internal/watch"
)

type Handler struct {
	Store               storage.Repository
	Sessions            *auth.SessionManager
	Watch               *watch.Engine
	Media               media.Store
	SessionCookiePolicy SessionCookiePolicy
	Logger              *slog.Logger
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager, engine *watch.Engine, mediaStore media.Store) *Handler {
	if mediaStore == nil {
		mediaStore = media.NewStore(media.Config{})
	}
	return &Handler{
		Store:    store,
		Sessions: sessions,
		Watch:    engine,
		Media:    mediaStore,
		Logger:   slog.Default(),
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Health reports readiness of the datastore.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	if err := h.Store.Ping(r.Context()); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		h.logger().Error("health check failed", "error", err)
	}
	writeJSON(w, httpStatus, map[string]string{"status": status})
}
