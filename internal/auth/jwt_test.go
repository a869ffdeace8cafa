package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"peerlink/internal/config"
)

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyUsesInjectedClockOnly(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: 15 * time.Minute, RefreshTokenTTL: time.Hour})

	// Timestamps far from wall-clock time in both directions: only the
	// injected now may decide validity.
	for _, issued := range []time.Time{
		time.Unix(1700000000, 0).UTC(),
		time.Now().Add(365 * 24 * time.Hour).UTC(),
	} {
		p, err := m.IssuePair(issued, "u")
		if err != nil {
			t.Fatalf("issue at %v: %v", issued, err)
		}
		if _, err := m.Verify(p.AccessToken, TokenTypeAccess, issued.Add(time.Minute)); err != nil {
			t.Fatalf("verify at issued+1m (%v): %v", issued, err)
		}
		if _, err := m.Verify(p.AccessToken, TokenTypeAccess, issued.Add(time.Hour)); err == nil {
			t.Fatalf("verify past TTL at %v must fail", issued)
		}
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, err := m.IssuePair(time.Now(), "u")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, time.Now()); err == nil {
		t.Fatalf("expected token_type mismatch")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	now := time.Unix(1700000000, 0).UTC()
	p, err := m.IssuePair(now, "u")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	// Past the TTL plus the verifier's clock-skew leeway.
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now.Add(2*time.Minute)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestTokenFromWebSocketRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=abc", nil)
	tok, err := TokenFromWebSocketRequest(r)
	if err != nil || tok != "abc" {
		t.Fatalf("query token: got %q, %v", tok, err)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	tok, err = TokenFromWebSocketRequest(r)
	if err != nil || tok != "xyz" {
		t.Fatalf("header token: got %q, %v", tok, err)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	if _, err := TokenFromWebSocketRequest(r); err == nil {
		t.Fatalf("expected ErrNoCredential")
	}
}
