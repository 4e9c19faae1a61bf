package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"vidtube/internal/models"
)

// CredentialStore defines the persistence contract the session manager needs:
// identity lookup plus the atomic scalar write holding the current refresh
// token.
type CredentialStore interface {
	GetUser(ctx context.Context, id string) (models.User, bool, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, bool, error)
	SetRefreshToken(ctx context.Context, id, token string) error
}

// SessionOption configures a SessionManager instance.
type SessionOption func(*SessionManager)

// WithLogger installs a logger for security-relevant session events.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// SessionManager orchestrates login, access-token authentication, refresh
// rotation, and logout against a credential store.
//
// A successful login or refresh overwrites the stored refresh token, silently
// invalidating any other active session for the account: at most one session
// per user can refresh at a time. Rotation is last-writer-wins; a losing
// concurrent writer's token is rejected on its next use.
type SessionManager struct {
	store  CredentialStore
	issuer *Issuer
	logger *slog.Logger
}

// NewSessionManager constructs a SessionManager over the provided store and issuer.
func NewSessionManager(store CredentialStore, issuer *Issuer, opts ...SessionOption) *SessionManager {
	manager := &SessionManager{store: store, issuer: issuer, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	return manager
}

// Login verifies the credentials, rotates in a fresh token pair, and returns
// the pair with the authenticated user. Unknown accounts and wrong passwords
// both fail with ErrInvalidCredentials.
func (m *SessionManager) Login(ctx context.Context, email, password string) (TokenPair, models.User, error) {
	if password == "" {
		return TokenPair{}, models.User{}, ErrInvalidCredentials
	}
	user, ok, err := m.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return TokenPair{}, models.User{}, fmt.Errorf("look up account: %w", err)
	}
	if !ok {
		return TokenPair{}, models.User{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return TokenPair{}, models.User{}, ErrInvalidCredentials
		}
		return TokenPair{}, models.User{}, err
	}
	pair, err := m.rotate(ctx, user)
	if err != nil {
		return TokenPair{}, models.User{}, err
	}
	return pair, user, nil
}

// Authenticate resolves an access token into the account it identifies.
// Expired tokens fail with ErrSessionExpired so clients know to refresh;
// any other verification failure reports ErrTokenInvalid.
func (m *SessionManager) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := m.issuer.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return models.User{}, ErrSessionExpired
		}
		return models.User{}, ErrTokenInvalid
	}
	user, ok, err := m.store.GetUser(ctx, claims.UserID())
	if err != nil {
		return models.User{}, fmt.Errorf("load account: %w", err)
	}
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

// Refresh validates the presented refresh token and rotates in a new pair.
// The token must verify cryptographically and must equal the value currently
// stored on the account: a token that was already rotated away is rejected
// with ErrTokenReused and logged as a possible replay. Storage failures leave
// the stored token untouched and issue nothing.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrMissingToken
	}
	claims, err := m.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, ErrSigningKeyMissing) {
			return TokenPair{}, err
		}
		return TokenPair{}, ErrTokenInvalid
	}
	user, ok, err := m.store.GetUser(ctx, claims.UserID())
	if err != nil {
		return TokenPair{}, fmt.Errorf("load account: %w", err)
	}
	if !ok {
		return TokenPair{}, ErrUserNotFound
	}
	if user.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		m.logger.Warn("refresh token replay detected", "user_id", user.ID)
		return TokenPair{}, ErrTokenReused
	}
	return m.rotate(ctx, user)
}

// Logout clears the stored refresh token so no future refresh with the old
// value can succeed. Clearing an already-empty token is a no-op.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if err := m.store.SetRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (m *SessionManager) rotate(ctx context.Context, user models.User) (TokenPair, error) {
	pair, err := m.issuer.IssuePair(user)
	if err != nil {
		return TokenPair{}, err
	}
	if err := m.store.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return pair, nil
}
