// Package models defines the persisted document shapes shared across the
// storage drivers and the API layer.
package models

import "time"

// MediaAsset references a file held by the external media store. PublicID is
// the store-side handle needed for deletion.
type MediaAsset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

// User is the persisted account record. RefreshToken holds the single
// currently-valid refresh token for the account; an empty value means no
// session can be refreshed. WatchHistory is ordered most-recently-watched
// first and contains each video id at most once.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	Avatar       MediaAsset `json:"avatar"`
	CoverImage   MediaAsset `json:"coverImage"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	WatchHistory []string   `json:"watchHistory"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// PublicUser is the client-facing view of an account. It excludes the password
// hash, the stored refresh token, and the watch history.
type PublicUser struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FullName   string     `json:"fullName"`
	Avatar     MediaAsset `json:"avatar"`
	CoverImage MediaAsset `json:"coverImage"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Public returns the sanitized view of the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// Video is the persisted catalog record. Views is monotonically
// non-decreasing and incremented at most once per distinct transition of the
// video into a viewer's most-recently-watched slot.
type Video struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	VideoFile   MediaAsset `json:"videoFile"`
	Thumbnail   MediaAsset `json:"thumbnail"`
	Duration    float64    `json:"duration"`
	Views       int64      `json:"views"`
	IsPublished bool       `json:"isPublished"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Comment is a viewer comment attached to a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// WatchHistoryEntry is a hydrated watch-history element returned to clients,
// preserving the most-recent-first ordering of the stored id list.
type WatchHistoryEntry struct {
	Video Video      `json:"video"`
	Owner PublicUser `json:"owner"`
}
