package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"vidtube/internal/models"
)

// foldForSearch normalizes a string for case-insensitive matching. Casers
// are stateful, so each call builds its own.
func foldForSearch(value string) string {
	return cases.Fold().String(value)
}

// CreateVideo registers a catalog record for an already-uploaded media asset.
func (s *Storage) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, fmt.Errorf("title is required")
	}
	if params.OwnerID == "" {
		return models.Video{}, fmt.Errorf("owner is required")
	}
	if params.VideoFile.URL == "" || params.VideoFile.PublicID == "" {
		return models.Video{}, fmt.Errorf("video file url and public id are required")
	}
	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.OwnerID]; !ok {
		return models.Video{}, ErrUserNotFound
	}

	now := s.now().UTC()
	video := models.Video{
		ID:          id,
		OwnerID:     params.OwnerID,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		VideoFile:   params.VideoFile,
		Thumbnail:   params.Thumbnail,
		Duration:    params.Duration,
		IsPublished: params.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.data.Videos[id] = video
	if err := s.persistLocked(); err != nil {
		delete(s.data.Videos, id)
		return models.Video{}, err
	}
	return video, nil
}

// GetVideo retrieves the catalog record by primary key.
func (s *Storage) GetVideo(ctx context.Context, id string) (models.Video, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok, nil
}

// UpdateVideo applies the partial update to the record.
func (s *Storage) UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, ErrVideoNotFound
	}
	previous := video
	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		if trimmed == "" {
			return models.Video{}, fmt.Errorf("title cannot be empty")
		}
		video.Title = trimmed
	}
	if update.Description != nil {
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.Thumbnail != nil {
		video.Thumbnail = *update.Thumbnail
	}
	if update.IsPublished != nil {
		video.IsPublished = *update.IsPublished
	}
	video.UpdatedAt = s.now().UTC()
	s.data.Videos[id] = video
	if err := s.persistLocked(); err != nil {
		s.data.Videos[id] = previous
		return models.Video{}, err
	}
	return video, nil
}

// DeleteVideo removes the record along with its comments and likes, and
// returns the deleted record so callers can release the media assets.
func (s *Storage) DeleteVideo(ctx context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, ErrVideoNotFound
	}
	removedComments := make(map[string]models.Comment)
	for commentID, comment := range s.data.Comments {
		if comment.VideoID == id {
			removedComments[commentID] = comment
			delete(s.data.Comments, commentID)
		}
	}
	removedLikes := s.data.Likes[id]
	delete(s.data.Likes, id)
	delete(s.data.Videos, id)

	if err := s.persistLocked(); err != nil {
		s.data.Videos[id] = video
		for commentID, comment := range removedComments {
			s.data.Comments[commentID] = comment
		}
		if removedLikes != nil {
			s.data.Likes[id] = removedLikes
		}
		return models.Video{}, err
	}
	return video, nil
}

// ListVideos returns published videos, newest first. A non-empty ownerID
// narrows the listing to that owner and includes unpublished records.
func (s *Storage) ListVideos(ctx context.Context, ownerID string) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if ownerID != "" {
			if video.OwnerID == ownerID {
				videos = append(videos, video)
			}
			continue
		}
		if video.IsPublished {
			videos = append(videos, video)
		}
	}
	sortVideosNewestFirst(videos)
	return videos, nil
}

// SearchVideos matches published titles against the query using Unicode case
// folding, newest first. An empty query matches nothing.
func (s *Storage) SearchVideos(ctx context.Context, query string) ([]models.Video, error) {
	needle := foldForSearch(strings.TrimSpace(query))
	if needle == "" {
		return []models.Video{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]models.Video, 0)
	for _, video := range s.data.Videos {
		if !video.IsPublished {
			continue
		}
		if strings.Contains(foldForSearch(video.Title), needle) {
			matches = append(matches, video)
		}
	}
	sortVideosNewestFirst(matches)
	return matches, nil
}

// VideoExists reports whether the video id resolves to a record.
func (s *Storage) VideoExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data.Videos[id]
	return ok, nil
}

// IncrementViewCount atomically increments the view counter by exactly one.
func (s *Storage) IncrementViewCount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return ErrVideoNotFound
	}
	previous := video
	video.Views++
	s.data.Videos[id] = video
	if err := s.persistLocked(); err != nil {
		s.data.Videos[id] = previous
		return err
	}
	return nil
}

func sortVideosNewestFirst(videos []models.Video) {
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID < videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
}
