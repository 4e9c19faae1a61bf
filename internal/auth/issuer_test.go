package auth

import (
	"errors"
	"testing"
	"time"

	"vidtube/internal/models"
)

func testIssuer() *Issuer {
	return NewIssuer(IssuerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
}

func testUser() models.User {
	return models.User{
		ID:       "user-1",
		Username: "creator",
		Email:    "creator@example.com",
		FullName: "Creator One",
	}
}

func TestAccessTokenClaimsRoundTrip(t *testing.T) {
	issuer := testIssuer()
	token, expiresAt, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expected expiry in the future")
	}

	claims, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken returned error: %v", err)
	}
	if claims.UserID() != "user-1" {
		t.Fatalf("expected subject user-1, got %s", claims.UserID())
	}
	if claims.Email != "creator@example.com" || claims.Username != "creator" || claims.FullName != "Creator One" {
		t.Fatalf("identity claims did not round trip: %+v", claims)
	}
}

func TestRefreshTokenCarriesSubjectOnly(t *testing.T) {
	issuer := testIssuer()
	token, _, err := issuer.IssueRefreshToken(testUser())
	if err != nil {
		t.Fatalf("IssueRefreshToken returned error: %v", err)
	}
	claims, err := issuer.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("VerifyRefreshToken returned error: %v", err)
	}
	if claims.UserID() != "user-1" {
		t.Fatalf("expected subject user-1, got %s", claims.UserID())
	}
	if claims.Email != "" || claims.Username != "" {
		t.Fatalf("refresh token should not carry identity claims: %+v", claims)
	}
}

func TestSecretsAreDisjoint(t *testing.T) {
	issuer := testIssuer()
	access, _, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	if _, err := issuer.VerifyRefreshToken(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected access token to fail refresh verification, got %v", err)
	}
}

func TestVerifyDistinguishesExpiredFromMalformed(t *testing.T) {
	issuer := testIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	expired, _, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	issuer.now = time.Now

	if _, err := issuer.VerifyAccessToken(expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := issuer.VerifyAccessToken("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}

	other := NewIssuer(IssuerConfig{AccessSecret: "different-secret", RefreshSecret: "x"})
	forged, _, err := other.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	if _, err := issuer.VerifyAccessToken(forged); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for bad signature, got %v", err)
	}
}

func TestMissingSecretFailsIssuance(t *testing.T) {
	issuer := NewIssuer(IssuerConfig{})
	if _, _, err := issuer.IssueAccessToken(testUser()); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("expected ErrSigningKeyMissing, got %v", err)
	}
	if _, _, err := issuer.IssueRefreshToken(testUser()); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("expected ErrSigningKeyMissing, got %v", err)
	}
}

func TestDefaultLifetimes(t *testing.T) {
	issuer := NewIssuer(IssuerConfig{AccessSecret: "a", RefreshSecret: "r"})
	if issuer.accessTTL != defaultAccessTTL {
		t.Fatalf("expected default access TTL, got %v", issuer.accessTTL)
	}
	if issuer.refreshTTL != defaultRefreshTTL {
		t.Fatalf("expected default refresh TTL, got %v", issuer.refreshTTL)
	}
}
