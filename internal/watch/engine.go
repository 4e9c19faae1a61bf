// Package watch maintains each viewer's ordered, deduplicated watch history
// and the per-video view counter.
package watch

import (
	"context"
	"fmt"
	"log/slog"

	"vidtube/internal/storage"
)

// Store is the subset of the document store the engine drives. The
// push-to-front primitive must atomically remove any existing occurrence and
// prepend, so history never holds the same video twice regardless of how
// concurrent calls interleave.
type Store interface {
	VideoExists(ctx context.Context, id string) (bool, error)
	UserWatchHistory(ctx context.Context, id string) ([]string, error)
	RemoveFromWatchHistory(ctx context.Context, id, videoID string) error
	PushWatchHistoryFront(ctx context.Context, id, videoID string) error
	IncrementViewCount(ctx context.Context, id string) error
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger installs a logger for recording failed view events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine applies view events to a viewer's watch history. Histories are
// ordered most-recently-watched first; a video's counter moves only when the
// video newly enters that front slot.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// NewEngine constructs an Engine over the provided store.
func NewEngine(store Store, opts ...Option) *Engine {
	engine := &Engine{store: store, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine
}

// RecordView processes a view of videoID by userID.
//
// A view of the video already at the front of the history is a repeat of the
// still-current view and changes nothing. A video found elsewhere in the
// history moves to the front without touching the counter. A video absent
// from the history is pushed to the front and the counter is incremented
// exactly once.
func (e *Engine) RecordView(ctx context.Context, userID, videoID string) error {
	if videoID == "" {
		return fmt.Errorf("video id is required")
	}
	exists, err := e.store.VideoExists(ctx, videoID)
	if err != nil {
		return fmt.Errorf("check video: %w", err)
	}
	if !exists {
		return storage.ErrVideoNotFound
	}

	history, err := e.store.UserWatchHistory(ctx, userID)
	if err != nil {
		return fmt.Errorf("load watch history: %w", err)
	}
	if len(history) > 0 && history[0] == videoID {
		return nil
	}

	if containsVideo(history, videoID) {
		if err := e.store.RemoveFromWatchHistory(ctx, userID, videoID); err != nil {
			return fmt.Errorf("remove from watch history: %w", err)
		}
		if err := e.store.PushWatchHistoryFront(ctx, userID, videoID); err != nil {
			return fmt.Errorf("reorder watch history: %w", err)
		}
		return nil
	}

	if err := e.store.PushWatchHistoryFront(ctx, userID, videoID); err != nil {
		return fmt.Errorf("push watch history: %w", err)
	}
	if err := e.store.IncrementViewCount(ctx, videoID); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// RecordViewBestEffort applies the view event and logs failures instead of
// propagating them; serving the video does not depend on bookkeeping.
func (e *Engine) RecordViewBestEffort(ctx context.Context, userID, videoID string) {
	if err := e.RecordView(ctx, userID, videoID); err != nil {
		e.logger.Error("record view failed", "user_id", userID, "video_id", videoID, "error", err)
	}
}

func containsVideo(history []string, videoID string) bool {
	for _, entry := range history {
		if entry == videoID {
			return true
		}
	}
	return false
}
