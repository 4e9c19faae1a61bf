package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vidtube/internal/models"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// IssuerConfig carries the signing secrets and token lifetimes. It is
// assembled once at startup and injected; the issuer never reads process
// environment itself.
type IssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Claims is the payload embedded in issued tokens. Access tokens carry the
// full identity claims; refresh tokens carry only the registered subject.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// UserID returns the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenPair bundles the credentials minted together at login or refresh. The
// access token is stateless and never persisted; the refresh token's validity
// is tied to the value stored on the user record.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// Issuer signs and verifies access and refresh tokens. It holds no state
// beyond its configuration; all methods are safe for concurrent use.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewIssuer constructs an Issuer, applying the default minutes-scale access
// TTL and days-scale refresh TTL when the configuration leaves them unset.
func NewIssuer(cfg IssuerConfig) *Issuer {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccessToken signs a short-lived token embedding the user's identity claims.
func (i *Issuer) IssueAccessToken(user models.User) (string, time.Time, error) {
	if len(i.accessSecret) == 0 {
		return "", time.Time{}, ErrSigningKeyMissing
	}
	now := i.now()
	expiresAt := now.Add(i.accessTTL)
	jti, err := newTokenID()
	if err != nil {
		return "", time.Time{}, err
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken signs a long-lived token carrying only the subject,
// using a secret disjoint from the access secret.
func (i *Issuer) IssueRefreshToken(user models.User) (string, time.Time, error) {
	if len(i.refreshSecret) == 0 {
		return "", time.Time{}, ErrSigningKeyMissing
	}
	now := i.now()
	expiresAt := now.Add(i.refreshTTL)
	// The jti keeps tokens minted within the same second distinct, so every
	// rotation truly supersedes the previous value.
	jti, err := newTokenID()
	if err != nil {
		return "", time.Time{}, err
	}
	claims := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssuePair mints a fresh access/refresh pair for the user.
func (i *Issuer) IssuePair(user models.User) (TokenPair, error) {
	access, accessExpiresAt, err := i.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := i.IssueRefreshToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: accessExpiresAt}, nil
}

// VerifyAccessToken parses and validates an access token. Expired tokens
// report ErrTokenExpired; malformed or badly signed tokens report
// ErrTokenInvalid.
func (i *Issuer) VerifyAccessToken(token string) (*Claims, error) {
	return i.verify(token, i.accessSecret)
}

// VerifyRefreshToken parses and validates a refresh token signature and
// expiry. Equality with the stored token is the SessionManager's concern.
func (i *Issuer) VerifyRefreshToken(token string) (*Claims, error) {
	return i.verify(token, i.refreshSecret)
}

func (i *Issuer) verify(token string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrSigningKeyMissing
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func newTokenID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}
