package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown accounts and wrong passwords so
	// callers cannot distinguish them and enumerate registered emails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired indicates a structurally valid access token whose
	// expiry has passed; clients should attempt a refresh.
	ErrSessionExpired = errors.New("session expired")

	// ErrTokenInvalid indicates a malformed token or a bad signature.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired indicates a token that verified but is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenReused indicates a refresh token that verified cryptographically
	// but no longer matches the stored value: it was already rotated away.
	ErrTokenReused = errors.New("refresh token reused after rotation")

	// ErrMissingToken indicates no refresh token was presented.
	ErrMissingToken = errors.New("refresh token required")

	// ErrUserNotFound indicates the token's subject no longer resolves to an
	// account, typically because it was deleted.
	ErrUserNotFound = errors.New("account not found")

	// ErrSigningKeyMissing indicates the issuer was constructed without a
	// signing secret.
	ErrSigningKeyMissing = errors.New("signing secret is not configured")
)
