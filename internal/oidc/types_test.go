package oidc

import (
	"testing"
	"time"
)

func TestTokenSet_ExpiresWithin(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		within    time.Duration
		expected  bool
	}{
		{
			name:      "well before the window",
			expiresAt: now.Add(1 * time.Hour),
			within:    2 * time.Minute,
			expected:  false,
		},
		{
			name:      "inside the window",
			expiresAt: now.Add(90 * time.Second),
			within:    2 * time.Minute,
			expected:  true,
		},
		{
			name:      "already expired",
			expiresAt: now.Add(-1 * time.Minute),
			within:    2 * time.Minute,
			expected:  true,
		},
		{
			name:      "no expiry never expires",
			expiresAt: time.Time{},
			within:    2 * time.Minute,
			expected:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := &TokenSet{AccessToken: "token", ExpiresAt: tc.expiresAt}
			if got := ts.ExpiresWithin(tc.within); got != tc.expected {
				t.Errorf("ExpiresWithin(%v) = %v, want %v", tc.within, got, tc.expected)
			}
		})
	}
}

func TestTokenSet_ExpiresWithin_Boundary(t *testing.T) {
	// A 3600s token checked against a 120s window: with 600s of lifetime
	// left (T+3000) it is not yet expiring, with 119s left (T+3481) it is,
	// and a token sitting exactly on the window edge counts as expiring
	// because the comparison is inclusive.
	now := time.Now()
	window := 120 * time.Second

	outside := &TokenSet{AccessToken: "token", ExpiresAt: now.Add(600 * time.Second)}
	if outside.ExpiresWithin(window) {
		t.Error("token with 600s left should not be expiring within a 120s window")
	}

	inside := &TokenSet{AccessToken: "token", ExpiresAt: now.Add(119 * time.Second)}
	if !inside.ExpiresWithin(window) {
		t.Error("token with 119s left should be expiring within a 120s window")
	}

	edge := &TokenSet{AccessToken: "token", ExpiresAt: now.Add(window)}
	if !edge.ExpiresWithin(window) {
		t.Error("token exactly at the window edge should count as expiring")
	}
}

func TestTokenSet_OAuth2RoundTrip(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	ts := &TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		IDToken:      "identity",
		TokenType:    "Bearer",
		ExpiresAt:    expiry,
	}

	back := TokenSetFromOAuth2(ts.ToOAuth2Token())

	if back.AccessToken != ts.AccessToken {
		t.Errorf("access token mismatch: %q != %q", back.AccessToken, ts.AccessToken)
	}
	if back.RefreshToken != ts.RefreshToken {
		t.Errorf("refresh token mismatch: %q != %q", back.RefreshToken, ts.RefreshToken)
	}
	if back.IDToken != ts.IDToken {
		t.Errorf("id token must survive the round trip via Extra: %q != %q", back.IDToken, ts.IDToken)
	}
	if !back.ExpiresAt.Equal(ts.ExpiresAt) {
		t.Errorf("expiry mismatch: %v != %v", back.ExpiresAt, ts.ExpiresAt)
	}
}

func TestTokenResponse_ToTokenSet_NoExpiry(t *testing.T) {
	tr := &tokenResponse{
		AccessToken: "access",
		TokenType:   "Bearer",
	}

	ts := tr.toTokenSet(time.Now())
	if ts.HasExpiry() {
		t.Error("token without expires_in should have no absolute expiry")
	}
	if ts.ExpiresWithin(time.Hour) {
		t.Error("token without expiry should never report as expiring")
	}
}
