package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"oidckit/pkg/logging"
)

// DefaultHTTPTimeout bounds every network call the client makes. A timeout
// surfaces as a normal network failure; there is no retry at this layer.
const DefaultHTTPTimeout = 10 * time.Second

// Fixed issuer endpoint paths.
const (
	authorizePath  = "/auth"
	tokenPath      = "/token"
	userInfoPath   = "/me"
	endSessionPath = "/session/end"
)

// FlowState holds the transient correlation data for one in-flight
// authorization attempt. Exactly one flow state is live per client; building
// a new authorization URL overwrites it, so only the most recent attempt can
// be completed.
type FlowState struct {
	// AttemptID correlates log entries for this attempt.
	AttemptID string

	// CodeVerifier is the PKCE verifier. Never transmitted in the
	// authorization request; only its S256 challenge is.
	CodeVerifier string

	// State is the anti-CSRF parameter echoed back by the callback.
	State string

	// Nonce is bound into the ID token for replay protection.
	Nonce string

	// CreatedAt is when the attempt started.
	CreatedAt time.Time
}

// ClientConfig configures the protocol client.
type ClientConfig struct {
	// IssuerURL is the base URL of the OIDC provider.
	IssuerURL string

	// ClientID is the registered public client identifier.
	ClientID string

	// RedirectURI receives the authorization callback.
	RedirectURI string

	// PostLogoutRedirectURI is where the provider sends the browser after
	// RP-initiated logout. Defaults to RedirectURI when empty.
	PostLogoutRedirectURI string

	// Scopes are the requested scopes, space-joined into the scope parameter.
	Scopes []string

	// HTTPClient is an optional custom HTTP client, used by tests.
	HTTPClient *http.Client
}

// AuthorizeOptions carries the optional authorization request parameters.
type AuthorizeOptions struct {
	// MaxAgeSeconds sets max_age when > 0, forcing re-authentication if the
	// provider session is older.
	MaxAgeSeconds int

	// Prompt sets the prompt parameter ("none" attempts silent re-auth,
	// "login" forces the login page).
	Prompt string

	// LoginHint pre-fills the provider's login form for silent re-auth.
	LoginHint string
}

// Client implements the Authorization Code + PKCE (S256) flow against a
// configured issuer: authorization and logout URL construction, code
// exchange, token refresh, and userinfo fetch.
type Client struct {
	issuer                *url.URL
	clientID              string
	redirectURI           string
	postLogoutRedirectURI string
	scopes                []string
	httpClient            *http.Client

	mu   sync.Mutex
	flow *FlowState
}

// NewClient creates a protocol client. The only construction failure is a
// malformed issuer URL.
func NewClient(cfg ClientConfig) (*Client, error) {
	issuer, err := url.Parse(strings.TrimSuffix(cfg.IssuerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid issuer URL %q: %w", cfg.IssuerURL, err)
	}
	if issuer.Scheme == "" || issuer.Host == "" {
		return nil, fmt.Errorf("invalid issuer URL %q: missing scheme or host", cfg.IssuerURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	postLogout := cfg.PostLogoutRedirectURI
	if postLogout == "" {
		postLogout = cfg.RedirectURI
	}

	return &Client{
		issuer:                issuer,
		clientID:              cfg.ClientID,
		redirectURI:           cfg.RedirectURI,
		postLogoutRedirectURI: postLogout,
		scopes:                cfg.Scopes,
		httpClient:            httpClient,
	}, nil
}

// BuildAuthorizeURL generates fresh verifier/state/nonce values, stores them
// as the new flow state (overwriting any prior attempt), and returns the
// authorization URL. Pure URL construction; no network call is made.
func (c *Client) BuildAuthorizeURL(opts *AuthorizeOptions) (string, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return "", err
	}
	state, err := GenerateState()
	if err != nil {
		return "", err
	}
	nonce, err := GenerateNonce()
	if err != nil {
		return "", err
	}

	flow := &FlowState{
		AttemptID:    uuid.NewString(),
		CodeVerifier: verifier,
		State:        state,
		Nonce:        nonce,
		CreatedAt:    time.Now(),
	}

	c.mu.Lock()
	c.flow = flow
	c.mu.Unlock()

	authURL := c.endpoint(authorizePath)
	params := url.Values{
		"client_id":             {c.clientID},
		"redirect_uri":          {c.redirectURI},
		"response_type":         {"code"},
		"scope":                 {strings.Join(c.scopes, " ")},
		"state":                 {state},
		"nonce":                 {nonce},
		"code_challenge":        {ChallengeS256(verifier)},
		"code_challenge_method": {challengeMethodS256},
	}
	if opts != nil {
		if opts.MaxAgeSeconds > 0 {
			params.Set("max_age", strconv.Itoa(opts.MaxAgeSeconds))
		}
		if opts.Prompt != "" {
			params.Set("prompt", opts.Prompt)
		}
		if opts.LoginHint != "" {
			params.Set("login_hint", opts.LoginHint)
		}
	}
	authURL.RawQuery = params.Encode()

	logging.Debug("OIDC", "Built authorization URL for attempt=%s issuer=%s", flow.AttemptID, c.issuer)

	return authURL.String(), nil
}

// ExchangeCode exchanges an authorization code for a token set. The state
// returned by the callback must match the state of the most recently built
// authorization URL; a mismatch or a missing flow state fails the attempt
// without any network call. The flow state is consumed on success.
func (c *Client) ExchangeCode(ctx context.Context, code, returnedState string) (*TokenSet, error) {
	c.mu.Lock()
	flow := c.flow
	c.mu.Unlock()

	if flow == nil {
		return nil, ErrMissingVerifier
	}
	if returnedState != flow.State {
		logging.Warn("OIDC", "State mismatch on callback for attempt=%s (expected_len=%d received_len=%d)",
			flow.AttemptID, len(flow.State), len(returnedState))
		return nil, ErrStateMismatch
	}

	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURI},
		"code_verifier": {flow.CodeVerifier},
	}

	ts, err := c.postTokenEndpoint(ctx, data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.flow == flow {
		c.flow = nil
	}
	c.mu.Unlock()

	logging.Info("OIDC", "Code exchange succeeded for attempt=%s (expires_in=%d, has_refresh_token=%t)",
		flow.AttemptID, ts.ExpiresIn, ts.RefreshToken != "")

	return ts, nil
}

// Refresh redeems a refresh token for a new token set. If the provider does
// not rotate the refresh token, the returned set carries the one passed in,
// so callers never lose the ability to refresh.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
	}

	ts, err := c.postTokenEndpoint(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	if ts.RefreshToken == "" {
		ts.RefreshToken = refreshToken
	}

	logging.Debug("OIDC", "Token refresh succeeded (expires_in=%d, rotated=%t)",
		ts.ExpiresIn, ts.RefreshToken != refreshToken)

	return ts, nil
}

// FetchUserInfo fetches the user's profile claims with bearer auth. A 204 or
// empty body means the profile does not exist yet and returns (nil, nil);
// missing profile is not an error, unlike exchange failures.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(userInfoPath).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Debug("OIDC", "Userinfo fetch failed: status=%d", resp.StatusCode)
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	if len(body) == 0 {
		return nil, nil
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
	}

	return &info, nil
}

// BuildLogoutURL constructs the RP-initiated logout URL at the issuer's
// end-session endpoint. Pure construction; no network call.
func (c *Client) BuildLogoutURL(idToken string) string {
	logoutURL := c.endpoint(endSessionPath)
	params := url.Values{
		"client_id":                {c.clientID},
		"post_logout_redirect_uri": {c.postLogoutRedirectURI},
	}
	if idToken != "" {
		params.Set("id_token_hint", idToken)
	}
	logoutURL.RawQuery = params.Encode()
	return logoutURL.String()
}

// ClearStored discards the in-memory flow state. Called on logout or when an
// authorization attempt is abandoned, so a stale code/state pair can never be
// accepted later.
func (c *Client) ClearStored() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flow = nil
}

// FlowInProgress reports whether an authorization attempt is live.
func (c *Client) FlowInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow != nil
}

// postTokenEndpoint posts a form-encoded grant to the token endpoint and
// decodes the response. Secrets travel only in the POST body; the URL is safe
// to log.
func (c *Client) postTokenEndpoint(ctx context.Context, data url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(tokenPath).String(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	issuedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode >= 400 {
		logging.Debug("OIDC", "Token endpoint error: status=%d body=%s", resp.StatusCode, string(body))
		return nil, &TokenEndpointError{Status: resp.StatusCode, Body: string(body)}
	}

	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	return tr.toTokenSet(issuedAt), nil
}

// endpoint returns a copy of the issuer URL with the given path appended.
func (c *Client) endpoint(path string) *url.URL {
	u := *c.issuer
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return &u
}
