package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"vidtube/internal/auth"
	"vidtube/internal/models"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// CreateUser registers an account with a hashed password. Usernames and
// emails are stored lowercased and must be unique.
func (s *Storage) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Users {
		if existing.Username == username || existing.Email == email {
			return models.User{}, ErrUserExists
		}
	}

	now := s.now().UTC()
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
	s.data.Users[id] = user
	if err := s.persistLocked(); err != nil {
		delete(s.data.Users, id)
		return models.User{}, err
	}
	return user, nil
}

// GetUser retrieves the account by primary key.
func (s *Storage) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok, nil
}

// FindUserByEmail retrieves the account matching the (lowercased) email.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data.Users {
		if user.Email == needle {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

// FindUserByUsername retrieves the account matching the (lowercased) username.
func (s *Storage) FindUserByUsername(ctx context.Context, username string) (models.User, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(username))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data.Users {
		if user.Username == needle {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

// UpdateUser applies the partial update to the account.
func (s *Storage) UpdateUser(ctx context.Context, id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	previous := user
	if update.FullName != nil {
		trimmed := strings.TrimSpace(*update.FullName)
		if trimmed == "" {
			return models.User{}, fmt.Errorf("full name cannot be empty")
		}
		user.FullName = trimmed
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
	if update.CoverImage != nil {
		user.CoverImage = *update.CoverImage
	}
	user.UpdatedAt = s.now().UTC()
	s.data.Users[id] = user
	if err := s.persistLocked(); err != nil {
		s.data.Users[id] = previous
		return models.User{}, err
	}
	return user, nil
}

// SetUserPassword replaces the stored password hash for the account.
func (s *Storage) SetUserPassword(ctx context.Context, id, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	previous := user
	user.PasswordHash = hashed
	user.UpdatedAt = s.now().UTC()
	s.data.Users[id] = user
	if err := s.persistLocked(); err != nil {
		s.data.Users[id] = previous
		return err
	}
	return nil
}

// SetRefreshToken atomically replaces the stored refresh token. An empty
// token clears it, invalidating any outstanding session.
func (s *Storage) SetRefreshToken(ctx context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	previous := user
	user.RefreshToken = token
	s.data.Users[id] = user
	if err := s.persistLocked(); err != nil {
		s.data.Users[id] = previous
		return err
	}
	return nil
}

// UserWatchHistory returns a copy of the ordered watch history.
func (s *Storage) UserWatchHistory(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	history := make([]string, len(user.WatchHistory))
	copy(history, user.WatchHistory)
	return history, nil
}

// RemoveFromWatchHistory pulls the video id from the history, wherever it
// sits. Removing an absent id is a no-op.
func (s *Storage) RemoveFromWatchHistory(ctx context.Context, id, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	previous := user
	user.WatchHistory = removeEntry(user.WatchHistory, videoID)
	s.data.Users[id] = user
	if err := s.persistLocked(); err != nil {
		s.data.Users[id] = previous
		return err
	}
	return nil
}

// PushWatchHistoryFront moves the video id to the front of the history.
// Removal of any existing occurrence and the prepend happen as one step
// under the write lock, so no interleaving of concurrent calls can leave a
// duplicate behind.
func (s *Storage) PushWatchHistoryFront(ctx context.Context, id, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	previous := user
	user.WatchHistory = append([]string{videoID}, removeEntry(user.WatchHistory, videoID)...)
	s.data.Users[id] = user
	if err := s.persistLocked(); err != nil {
		s.data.Users[id] = previous
		return err
	}
	return nil
}

func removeEntry(history []string, videoID string) []string {
	filtered := make([]string, 0, len(history))
	for _, entry := range history {
		if entry != videoID {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
	}
	return nil
}
