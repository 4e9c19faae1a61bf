package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidtube/internal/auth"
	"vidtube/internal/models"
)

const uniqueViolationCode = "23505"

type postgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresRepository opens a Postgres-backed repository and applies the
// schema migration before returning.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	repo := &postgresRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the connection pool, honouring the context deadline.
func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

const userColumns = "id, username, email, full_name, avatar_url, avatar_public_id, cover_url, cover_public_id, password_hash, refresh_token, watch_history, created_at, updated_at"

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.Avatar.URL, &user.Avatar.PublicID,
		&user.CoverImage.URL, &user.CoverImage.PublicID,
		&user.PasswordHash, &user.RefreshToken, &user.WatchHistory,
		&user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *postgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	username := strings.ToLower(strings.TrimSpace(params.Username))
	email := strings.ToLower(strings.TrimSpace(params.Email))
	fullName := strings.TrimSpace(params.FullName)
	if username == "" || email == "" || fullName == "" {
		return models.User{}, fmt.Errorf("username, email, and full name are required")
	}
	if !emailPattern.MatchString(email) {
		return models.User{}, fmt.Errorf("invalid email format")
	}
	if err := validatePassword(params.Password); err != nil {
		return models.User{}, err
	}
	hashed, err := auth.HashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}

	now := r.now()
	user := models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       params.Avatar,
		CoverImage:   params.CoverImage,
		PasswordHash: hashed,
		WatchHistory: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = r.pool.Exec(ctx,
		"INSERT INTO users (id, username, email, full_name, avatar_url, avatar_public_id, cover_url, cover_public_id, password_hash, refresh_token, watch_history, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', $10, $11, $12)",
		id, username, email, fullName,
		params.Avatar.URL, params.Avatar.PublicID,
		params.CoverImage.URL, params.CoverImage.PublicID,
		hashed, user.WatchHistory, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("select user: %w", err)
	}
	return user, true, nil
}

func (r *postgresRepository) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(email))
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", needle)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("select user by email: %w", err)
	}
	return user, true, nil
}

func (r *postgresRepository) FindUserByUsername(ctx context.Context, username string) (models.User, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(username))
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", needle)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("select user by username: %w", err)
	}
	return user, true, nil
}

func (r *postgresRepository) UpdateUser(ctx context.Context, id string, update UserUpdate) (models.User, error) {
	if update.FullName != nil && strings.TrimSpace(*update.FullName) == "" {
		return models.User{}, fmt.Errorf("full name cannot be empty")
	}
	var fullName any
	if update.FullName != nil {
		fullName = strings.TrimSpace(*update.FullName)
	}
	var avatarURL, avatarPublicID any
	if update.Avatar != nil {
		avatarURL = update.Avatar.URL
		avatarPublicID = update.Avatar.PublicID
	}
	var coverURL, coverPublicID any
	if update.CoverImage != nil {
		coverURL = update.CoverImage.URL
		coverPublicID = update.CoverImage.PublicID
	}
	row := r.pool.QueryRow(ctx,
		"UPDATE users SET full_name = COALESCE($2, full_name), avatar_url = COALESCE($3, avatar_url), avatar_public_id = COALESCE($4, avatar_public_id), cover_url = COALESCE($5, cover_url), cover_public_id = COALESCE($6, cover_public_id), updated_at = $7 WHERE id = $1 RETURNING "+userColumns,
		id, fullName, avatarURL, avatarPublicID, coverURL, coverPublicID, r.now(),
	)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) SetUserPassword(ctx context.Context, id, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	tag, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1", id, hashed, r.now())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *postgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	tag, err := r.pool.Exec(ctx, "UPDATE users SET refresh_token = $2 WHERE id = $1", id, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *postgresRepository) UserWatchHistory(ctx context.Context, id string) ([]string, error) {
	var history []string
	err := r.pool.QueryRow(ctx, "SELECT watch_history FROM users WHERE id = $1", id).Scan(&history)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select watch history: %w", err)
	}
	if history == nil {
		history = []string{}
	}
	return history, nil
}

func (r *postgresRepository) RemoveFromWatchHistory(ctx context.Context, id, videoID string) error {
	tag, err := r.pool.Exec(ctx, "UPDATE users SET watch_history = array_remove(watch_history, $2) WHERE id = $1", id, videoID)
	if err != nil {
		return fmt.Errorf("remove from watch history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PushWatchHistoryFront performs the dedupe and prepend in one statement, so
// concurrent pushes for the same user serialise on the row and can never leave
// a duplicate entry.
func (r *postgresRepository) PushWatchHistoryFront(ctx context.Context, id, videoID string) error {
	tag, err := r.pool.Exec(ctx, "UPDATE users SET watch_history = array_prepend($2, array_remove(watch_history, $2)) WHERE id = $1", id, videoID)
	if err != nil {
		return fmt.Errorf("push watch history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

const videoColumns = "id, owner_id, title, description, video_url, video_public_id, thumb_url, thumb_public_id, duration, views, is_published, created_at, updated_at"

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoFile.URL, &video.VideoFile.PublicID,
		&video.Thumbnail.URL, &video.Thumbnail.PublicID,
		&video.Duration, &video.Views, &video.IsPublished,
		&video.CreatedAt, &video.UpdatedAt,
	)
	return video, err
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	defer rows.Close()
	videos := make([]models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

func (r *postgresRepository) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
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

	now := r.now()
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
	_, err = r.pool.Exec(ctx,
		"INSERT INTO videos (id, owner_id, title, description, video_url, video_public_id, thumb_url, thumb_public_id, duration, views, is_published, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12)",
		id, video.OwnerID, video.Title, video.Description,
		video.VideoFile.URL, video.VideoFile.PublicID,
		video.Thumbnail.URL, video.Thumbnail.PublicID,
		video.Duration, video.IsPublished, now, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Video{}, ErrUserNotFound
		}
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) GetVideo(ctx context.Context, id string) (models.Video, bool, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id)
	video, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, false, nil
	}
	if err != nil {
		return models.Video{}, false, fmt.Errorf("select video: %w", err)
	}
	return video, true, nil
}

func (r *postgresRepository) UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error) {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return models.Video{}, fmt.Errorf("title cannot be empty")
	}
	var title any
	if update.Title != nil {
		title = strings.TrimSpace(*update.Title)
	}
	var description any
	if update.Description != nil {
		description = strings.TrimSpace(*update.Description)
	}
	var thumbURL, thumbPublicID any
	if update.Thumbnail != nil {
		thumbURL = update.Thumbnail.URL
		thumbPublicID = update.Thumbnail.PublicID
	}
	var isPublished any
	if update.IsPublished != nil {
		isPublished = *update.IsPublished
	}
	row := r.pool.QueryRow(ctx,
		"UPDATE videos SET title = COALESCE($2, title), description = COALESCE($3, description), thumb_url = COALESCE($4, thumb_url), thumb_public_id = COALESCE($5, thumb_public_id), is_published = COALESCE($6, is_published), updated_at = $7 WHERE id = $1 RETURNING "+videoColumns,
		id, title, description, thumbURL, thumbPublicID, isPublished, r.now(),
	)
	video, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, ErrVideoNotFound
	}
	if err != nil {
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) DeleteVideo(ctx context.Context, id string) (models.Video, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Video{}, fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id)
	video, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, ErrVideoNotFound
	}
	if err != nil {
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM comments WHERE video_id = $1", id); err != nil {
		return models.Video{}, fmt.Errorf("delete comments: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM video_likes WHERE video_id = $1", id); err != nil {
		return models.Video{}, fmt.Errorf("delete likes: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM videos WHERE id = $1", id); err != nil {
		return models.Video{}, fmt.Errorf("delete video: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Video{}, fmt.Errorf("commit delete: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) ListVideos(ctx context.Context, ownerID string) ([]models.Video, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if ownerID != "" {
		rows, err = r.pool.Query(ctx, "SELECT "+videoColumns+" FROM videos WHERE owner_id = $1 ORDER BY created_at DESC, id", ownerID)
	} else {
		rows, err = r.pool.Query(ctx, "SELECT "+videoColumns+" FROM videos WHERE is_published ORDER BY created_at DESC, id")
	}
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return collectVideos(rows)
}

func (r *postgresRepository) SearchVideos(ctx context.Context, query string) ([]models.Video, error) {
	needle := strings.TrimSpace(query)
	if needle == "" {
		return []models.Video{}, nil
	}
	rows, err := r.pool.Query(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE is_published AND title ILIKE '%' || $1 || '%' ORDER BY created_at DESC, id",
		needle,
	)
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	return collectVideos(rows)
}

func (r *postgresRepository) VideoExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check video: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) IncrementViewCount(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "UPDATE videos SET views = views + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (r *postgresRepository) CreateComment(ctx context.Context, videoID, ownerID, content string) (models.Comment, error) {
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

	comment := models.Comment{
		ID:        id,
		VideoID:   videoID,
		OwnerID:   ownerID,
		Content:   trimmed,
		CreatedAt: r.now(),
	}
	_, err = r.pool.Exec(ctx,
		"INSERT INTO comments (id, video_id, owner_id, content, created_at) VALUES ($1, $2, $3, $4, $5)",
		id, videoID, ownerID, trimmed, comment.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			if pgErr.ConstraintName == "comments_owner_id_fkey" {
				return models.Comment{}, ErrUserNotFound
			}
			return models.Comment{}, ErrVideoNotFound
		}
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (r *postgresRepository) GetComment(ctx context.Context, id string) (models.Comment, bool, error) {
	var comment models.Comment
	err := r.pool.QueryRow(ctx, "SELECT id, video_id, owner_id, content, created_at FROM comments WHERE id = $1", id).
		Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Comment{}, false, nil
	}
	if err != nil {
		return models.Comment{}, false, fmt.Errorf("select comment: %w", err)
	}
	return comment, true, nil
}

func (r *postgresRepository) ListComments(ctx context.Context, videoID string, limit int) ([]models.Comment, error) {
	exists, err := r.VideoExists(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrVideoNotFound
	}
	query := "SELECT id, video_id, owner_id, content, created_at FROM comments WHERE video_id = $1 ORDER BY created_at DESC, id"
	args := []any{videoID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	comments := make([]models.Comment, 0)
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

func (r *postgresRepository) DeleteComment(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// ToggleVideoLike relies on the delete-then-insert round trip inside one
// transaction so the flip is atomic per (video, user) pair.
func (r *postgresRepository) ToggleVideoLike(ctx context.Context, videoID, userID string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin like transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)", videoID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check video: %w", err)
	}
	if !exists {
		return false, ErrVideoNotFound
	}
	tag, err := tx.Exec(ctx, "DELETE FROM video_likes WHERE video_id = $1 AND user_id = $2", videoID, userID)
	if err != nil {
		return false, fmt.Errorf("remove like: %w", err)
	}
	liked := tag.RowsAffected() == 0
	if liked {
		_, err = tx.Exec(ctx, "INSERT INTO video_likes (video_id, user_id, liked_at) VALUES ($1, $2, $3)", videoID, userID, r.now())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return false, ErrUserNotFound
			}
			return false, fmt.Errorf("insert like: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit like: %w", err)
	}
	return liked, nil
}

func (r *postgresRepository) CountVideoLikes(ctx context.Context, videoID string) (int, error) {
	exists, err := r.VideoExists(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrVideoNotFound
	}
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM video_likes WHERE video_id = $1", videoID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

var _ Repository = (*postgresRepository)(nil)
