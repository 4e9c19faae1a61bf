package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"vidtube/internal/models"
)

// CreateComment attaches a comment to a video.
func (s *Storage) CreateComment(ctx context.Context, videoID, ownerID, content string) (models.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, fmt.Errorf("comment content is required")
	}
	if len(trimmed) > MaxCommentLength {
		return models.Comment{}, fmt.Errorf("comment exceeds %d characters", MaxCommentLength)
	}
	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Comment{}, ErrVideoNotFound
	}
	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Comment{}, ErrUserNotFound
	}

	comment := models.Comment{
		ID:        id,
		VideoID:   videoID,
		OwnerID:   ownerID,
		Content:   trimmed,
		CreatedAt: s.now().UTC(),
	}
	s.data.Comments[id] = comment
	if err := s.persistLocked(); err != nil {
		delete(s.data.Comments, id)
		return models.Comment{}, err
	}
	return comment, nil
}

// GetComment retrieves a comment by primary key.
func (s *Storage) GetComment(ctx context.Context, id string) (models.Comment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok, nil
}

// ListComments returns the video's comments, newest first, capped at limit
// when limit is positive.
func (s *Storage) ListComments(ctx context.Context, videoID string, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return nil, ErrVideoNotFound
	}
	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	if limit > 0 && len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

// DeleteComment removes a comment.
func (s *Storage) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.data.Comments[id]
	if !ok {
		return ErrCommentNotFound
	}
	delete(s.data.Comments, id)
	if err := s.persistLocked(); err != nil {
		s.data.Comments[id] = comment
		return err
	}
	return nil
}

// ToggleVideoLike flips the user's like on the video and reports the
// resulting state.
func (s *Storage) ToggleVideoLike(ctx context.Context, videoID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return false, ErrVideoNotFound
	}
	if _, ok := s.data.Users[userID]; !ok {
		return false, ErrUserNotFound
	}
	likes := s.data.Likes[videoID]
	if likes == nil {
		likes = make(map[string]time.Time)
		s.data.Likes[videoID] = likes
	}
	previous, hadLike := likes[userID]
	liked := !hadLike
	if hadLike {
		delete(likes, userID)
	} else {
		likes[userID] = s.now().UTC()
	}
	if err := s.persistLocked(); err != nil {
		if hadLike {
			likes[userID] = previous
		} else {
			delete(likes, userID)
		}
		return false, err
	}
	return liked, nil
}

// CountVideoLikes returns the number of users currently liking the video.
func (s *Storage) CountVideoLikes(ctx context.Context, videoID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.data.Videos[videoID]; !ok {
		return 0, ErrVideoNotFound
	}
	return len(s.data.Likes[videoID]), nil
}
