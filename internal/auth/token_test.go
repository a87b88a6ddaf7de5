package auth

import (
	"errors"
	"testing"
	"time"
)

func testAccount() *Account {
	return &Account{
		ID:       "acc-1",
		Username: "johndoe",
		Email:    "john@example.com",
		Role:     RoleUser,
		Provider: ProviderLocal,
		Active:   true,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	pair, err := svc.IssuePair(testAccount())
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	claims, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != "acc-1" {
		t.Fatalf("subject = %q, want acc-1", claims.Subject)
	}
	if claims.Username != "johndoe" || claims.Email != "john@example.com" {
		t.Fatalf("identity claims wrong: %+v", claims)
	}
	if claims.Role != string(RoleUser) {
		t.Fatalf("role = %q, want user", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti")
	}
}

func TestTokenRefreshNotAcceptedAsAccess(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	pair, err := svc.IssuePair(testAccount())
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("verify refresh as access: got %v, want ErrTokenInvalid", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, err := NewTokenService("test-secret", WithTokenClock(clock))
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	pair, err := svc.IssuePair(testAccount())
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, err := svc.VerifyAccess(pair.AccessToken); err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := svc.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("verify after expiry: got %v, want ErrTokenExpired", err)
	}

	// The refresh token outlives the access token.
	if _, _, err := svc.Refresh(pair.RefreshToken); err != nil {
		t.Fatalf("refresh after access expiry: %v", err)
	}

	now = now.Add(8 * 24 * time.Hour)
	if _, _, err := svc.Refresh(pair.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("refresh after refresh expiry: got %v, want ErrTokenExpired", err)
	}
}

func TestTokenTamperedSignature(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	pair, err := svc.IssuePair(testAccount())
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	other, err := NewTokenService("other-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	if _, err := other.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("wrong secret: got %v, want ErrTokenInvalid", err)
	}

	if _, err := svc.VerifyAccess(pair.AccessToken + "x"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("tampered token: got %v, want ErrTokenInvalid", err)
	}
	if _, err := svc.VerifyAccess(""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("empty token: got %v, want ErrTokenInvalid", err)
	}
}

func TestTokenRefreshMintsAccessOnly(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewTokenService("test-secret", WithTokenClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	pair, err := svc.IssuePair(testAccount())
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	access, expiresAt, err := svc.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := svc.VerifyAccess(access)
	if err != nil {
		t.Fatalf("verify refreshed access: %v", err)
	}
	if claims.Subject != "acc-1" || claims.Username != "johndoe" {
		t.Fatalf("refreshed claims wrong: %+v", claims)
	}
	if want := now.Add(DefaultAccessTTL); !expiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", expiresAt, want)
	}

	// An access token is not accepted where a refresh token is required.
	if _, _, err := svc.Refresh(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh with access token: got %v, want ErrTokenInvalid", err)
	}
}
