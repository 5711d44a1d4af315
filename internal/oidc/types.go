package oidc

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenSet is the authoritative credential record produced by a code exchange
// or refresh. It is replaced wholesale on every refresh; callers never mutate
// individual fields of a stored set.
type TokenSet struct {
	// AccessToken is the opaque bearer token.
	AccessToken string `json:"accessToken"`

	// RefreshToken is used to obtain new access tokens. Absent for flows
	// granted without offline access.
	RefreshToken string `json:"refreshToken,omitempty"`

	// IDToken is the JWT-encoded OIDC identity token, if issued.
	IDToken string `json:"idToken,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"tokenType,omitempty"`

	// ExpiresIn is the token lifetime in seconds as reported by the issuer.
	ExpiresIn int `json:"-"`

	// ExpiresAt is the absolute expiry instant, derived from the issuance
	// time plus ExpiresIn. Zero means the token never auto-expires.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// HasExpiry reports whether the set carries an absolute expiry instant.
func (t *TokenSet) HasExpiry() bool {
	return !t.ExpiresAt.IsZero()
}

// ExpiresWithin reports whether the access token expires within the given
// duration. Sets without an expiry never expire for the purposes of this
// check; they are non-expiring tokens, not always-expiring ones.
func (t *TokenSet) ExpiresWithin(d time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(t.ExpiresAt) <= d
}

// ToOAuth2Token converts the set to an oauth2.Token for interop with
// libraries that consume the x/oauth2 types. The ID token travels in the
// token's extra data under "id_token".
func (t *TokenSet) ToOAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt,
	}
	if t.IDToken != "" {
		token = token.WithExtra(map[string]interface{}{
			"id_token": t.IDToken,
		})
	}
	return token
}

// TokenSetFromOAuth2 converts an oauth2.Token back into a TokenSet.
func TokenSetFromOAuth2(token *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		ts.IDToken = idToken
	}
	return ts
}

// UserInfo holds the claims returned by the issuer's userinfo endpoint.
type UserInfo struct {
	Subject       string `json:"sub"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// tokenResponse is the wire shape of a token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// toTokenSet converts a wire response into a TokenSet, deriving the absolute
// expiry from the issuance instant.
func (r *tokenResponse) toTokenSet(issuedAt time.Time) *TokenSet {
	ts := &TokenSet{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		IDToken:      r.IDToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
	}
	if r.ExpiresIn > 0 {
		ts.ExpiresAt = issuedAt.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return ts
}
