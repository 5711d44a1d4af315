// Package oidc implements the OIDC protocol operations for oidckit: building
// Authorization Code + PKCE (S256) authorization URLs, exchanging codes for
// tokens, refreshing tokens, fetching userinfo, and building RP-initiated
// logout URLs against a configured issuer.
//
// The client holds the transient flow state (code verifier, state, nonce) for
// exactly one in-flight authorization attempt. Building a new authorization
// URL overwrites the prior attempt; only the most recent attempt can be
// completed. Flow state lives in memory only and does not survive a process
// restart.
//
// Security properties:
//   - verifier, state, and nonce come from crypto/rand; generation failure is
//     an error, never a silent fallback to a weaker source
//   - the code challenge method is always S256, never "plain"
//   - secrets travel only in token endpoint POST bodies, never in logged URLs
package oidc
