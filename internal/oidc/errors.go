package oidc

import (
	"errors"
	"fmt"
)

// Flow integrity errors. Both are fatal to the current authorization attempt;
// the caller must restart from BuildAuthorizeURL. They are never retried.
var (
	// ErrStateMismatch indicates the state returned by the callback does not
	// match the state of the most recently built authorization URL. The
	// callback is either forged or belongs to an abandoned attempt.
	ErrStateMismatch = errors.New("oidc: state mismatch")

	// ErrMissingVerifier indicates no flow state is stored, e.g. the process
	// restarted mid-flow. An authorization attempt cannot be resumed across
	// process death.
	ErrMissingVerifier = errors.New("oidc: no code verifier stored")

	// ErrEmptyResponse indicates the token endpoint returned a 2xx status
	// with an empty body.
	ErrEmptyResponse = errors.New("oidc: empty token endpoint response")
)

// TokenEndpointError is returned when the token endpoint answers with an
// HTTP error status. The response body is retained for diagnostics; callers
// decide whether to surface it or restart sign-in.
type TokenEndpointError struct {
	// Status is the HTTP status code.
	Status int

	// Body is the raw response body.
	Body string
}

// Error implements the error interface.
func (e *TokenEndpointError) Error() string {
	return fmt.Sprintf("oidc: token endpoint returned status %d", e.Status)
}

// IsFlowIntegrityError reports whether err is one of the flow integrity
// errors that require restarting the authorization flow.
func IsFlowIntegrityError(err error) bool {
	return errors.Is(err, ErrStateMismatch) || errors.Is(err, ErrMissingVerifier)
}
