package oidc

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// verifierBytes is the number of random bytes for the PKCE code verifier.
	// 64 bytes encodes to 86 base64url characters, well inside the 43-128
	// range RFC 7636 allows.
	verifierBytes = 64

	// stateBytes is the number of random bytes for the OAuth state parameter.
	stateBytes = 32

	// nonceBytes is the number of random bytes for the OIDC nonce.
	nonceBytes = 32

	// challengeMethodS256 is the only PKCE challenge method this client
	// uses. "plain" is never emitted.
	challengeMethodS256 = "S256"
)

// GenerateVerifier generates a PKCE code verifier: 64 random bytes,
// base64url-encoded without padding. A failure of the system's secure random
// source is surfaced as an error, never masked by a weaker generator.
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ChallengeS256 computes the S256 code challenge for a verifier:
// BASE64URL(SHA256(verifier)).
func ChallengeS256(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState generates the random state parameter used to link the
// authorization response back to this attempt and reject forged callbacks.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateNonce generates the random nonce bound into the ID token for
// replay protection.
func GenerateNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
