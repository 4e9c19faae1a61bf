package storage

import (
	"context"
	"errors"

	"vidtube/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("username or email already in use")
	ErrVideoNotFound   = errors.New("video not found")
	ErrCommentNotFound = errors.New("comment not found")
)

// CreateUserParams carries the fields required to register an account.
type CreateUserParams struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     models.MediaAsset
	CoverImage models.MediaAsset
}

// UserUpdate applies a partial update; nil fields are left untouched.
type UserUpdate struct {
	FullName   *string
	Avatar     *models.MediaAsset
	CoverImage *models.MediaAsset
}

// CreateVideoParams carries the fields required to publish a video record.
type CreateVideoParams struct {
	OwnerID     string
	Title       string
	Description string
	VideoFile   models.MediaAsset
	Thumbnail   models.MediaAsset
	Duration    float64
	IsPublished bool
}

// VideoUpdate applies a partial update; nil fields are left untouched.
type VideoUpdate struct {
	Title       *string
	Description *string
	Thumbnail   *models.MediaAsset
	IsPublished *bool
}

// Repository exposes the datastore operations required by the API handlers,
// the session manager, and the watch activity engine. Implementations must
// make the refresh-token write, the watch-history mutations, and the view
// counter increment individually atomic: no caller-visible intermediate state.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, bool, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, bool, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, bool, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (models.User, error)
	SetUserPassword(ctx context.Context, id, password string) error
	SetRefreshToken(ctx context.Context, id, token string) error

	UserWatchHistory(ctx context.Context, id string) ([]string, error)
	RemoveFromWatchHistory(ctx context.Context, id, videoID string) error
	PushWatchHistoryFront(ctx context.Context, id, videoID string) error

	CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error)
	GetVideo(ctx context.Context, id string) (models.Video, bool, error)
	UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error)
	DeleteVideo(ctx context.Context, id string) (models.Video, error)
	ListVideos(ctx context.Context, ownerID string) ([]models.Video, error)
	SearchVideos(ctx context.Context, query string) ([]models.Video, error)
	VideoExists(ctx context.Context, id string) (bool, error)
	IncrementViewCount(ctx context.Context, id string) error

	CreateComment(ctx context.Context, videoID, ownerID, content string) (models.Comment, error)
	GetComment(ctx context.Context, id string) (models.Comment, bool, error)
	ListComments(ctx context.Context, videoID string, limit int) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	ToggleVideoLike(ctx context.Context, videoID, userID string) (bool, error)
	CountVideoLikes(ctx context.Context, videoID string) (int, error)
}

var _ Repository = (*Storage)(nil)
