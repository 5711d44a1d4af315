// Package lifecycle provides the token lifecycle manager: the single point
// through which the rest of the application obtains a valid bearer token and
// makes authorized HTTP calls.
//
// The manager moves the stored credential through an implicit state machine:
// no token, valid, refresh pending (proactive timer fired), and valid-stale
// (refresh failed, old token retained until a request actually gets
// rejected). Refreshes triggered by the proactive timer and by opportunistic
// pre-flight checks are serialized through a single-flight group so a
// refresh token is never redeemed twice concurrently.
package lifecycle

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"oidckit/internal/credstore"
	"oidckit/internal/oidc"
	"oidckit/pkg/logging"
)

// DefaultRefreshSkew is how far ahead of expiry the proactive refresh runs.
const DefaultRefreshSkew = 120 * time.Second

// refreshKey is the single-flight key: one slot, one refresh at a time.
const refreshKey = "refresh"

// Manager orchestrates proactive refresh scheduling, exposes the current
// bearer token, and wraps outbound HTTP calls with refresh-and-retry-on-401.
type Manager struct {
	client     *oidc.Client
	store      *credstore.Store
	skew       time.Duration
	httpClient *http.Client
	group      singleflight.Group
}

// Config configures the lifecycle manager.
type Config struct {
	// Client performs the protocol operations.
	Client *oidc.Client

	// Store owns the persisted token set.
	Store *credstore.Store

	// RefreshSkew overrides the proactive refresh advance. Defaults to
	// DefaultRefreshSkew.
	RefreshSkew time.Duration

	// HTTPClient is the client used for authorized resource requests.
	// Defaults to a client with the standard 10 second timeout.
	HTTPClient *http.Client
}

// NewManager creates a lifecycle manager. If the store already holds a
// record (loaded from a prior run), proactive refresh is re-armed for it.
func NewManager(cfg Config) *Manager {
	skew := cfg.RefreshSkew
	if skew <= 0 {
		skew = DefaultRefreshSkew
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: oidc.DefaultHTTPTimeout}
	}

	m := &Manager{
		client:     cfg.Client,
		store:      cfg.Store,
		skew:       skew,
		httpClient: httpClient,
	}

	if m.store.Current() != nil {
		m.armProactiveRefresh()
	}

	return m
}

// SetInitialTokens stores the token set obtained from a code exchange and
// arms the proactive refresh timer for it.
func (m *Manager) SetInitialTokens(ts *oidc.TokenSet) error {
	if err := m.store.Set(ts); err != nil {
		return err
	}
	m.armProactiveRefresh()
	return nil
}

// Bearer returns the current access token, or "" when none is stored.
func (m *Manager) Bearer() string {
	ts := m.store.Current()
	if ts == nil {
		return ""
	}
	return ts.AccessToken
}

// Current returns the stored token set, or nil when signed out.
func (m *Manager) Current() *oidc.TokenSet {
	return m.store.Current()
}

// CanRefresh reports whether a refresh is possible at all, distinguishing
// "no refresh token" from RefreshIfNeeded's "not needed yet" nil result.
func (m *Manager) CanRefresh() bool {
	ts := m.store.Current()
	return ts != nil && ts.RefreshToken != ""
}

// RefreshIfNeeded refreshes the stored token set and returns the new one.
//
// It returns (nil, nil) when no refresh is possible (no stored record or no
// refresh token) and, unless force is set, when the current token is not yet
// within the expiry skew window. Refresh failures are propagated; the old
// token set stays in place so callers can keep using it until a request is
// actually rejected.
//
// Concurrent callers share a single in-flight refresh: only one request
// reaches the token endpoint and every caller observes the same result.
func (m *Manager) RefreshIfNeeded(ctx context.Context, force bool) (*oidc.TokenSet, error) {
	current := m.store.Current()
	if current == nil || current.RefreshToken == "" {
		return nil, nil
	}

	if !force && !current.ExpiresWithin(m.skew) {
		return nil, nil
	}

	initiated := false
	result, err, shared := m.group.Do(refreshKey, func() (interface{}, error) {
		initiated = true

		// Re-read inside the flight: a caller that joined late must redeem
		// the freshest refresh token, not the one read before queueing.
		ts := m.store.Current()
		if ts == nil || ts.RefreshToken == "" {
			return nil, nil
		}

		refreshed, err := m.client.Refresh(ctx, ts.RefreshToken)
		if err != nil {
			return nil, err
		}

		if err := m.store.Set(refreshed); err != nil {
			return nil, err
		}

		return refreshed, nil
	})
	if err != nil {
		return nil, err
	}
	if shared && !initiated {
		logging.Debug("Lifecycle", "Joined in-flight token refresh")
	}
	if result == nil {
		return nil, nil
	}

	// Rescheduling happens outside the flight so the store's synchronous
	// catch-up path can never re-enter the single-flight group.
	if initiated {
		m.scheduleProactiveRefresh()
	}

	return result.(*oidc.TokenSet), nil
}

// Do issues an authorized HTTP request and returns the response body along
// with the response.
//
// Before the request it opportunistically refreshes the token; that error is
// swallowed deliberately, since the current token may still be accepted. If
// the response is a 401 it performs exactly one forced refresh and retries
// exactly once; if the forced refresh itself fails, the retry proceeds with
// whatever token is available and the result is returned as-is. There is no
// backoff and no further retry at this layer.
func (m *Manager) Do(ctx context.Context, method, url string, body []byte) ([]byte, *http.Response, error) {
	if _, err := m.RefreshIfNeeded(ctx, false); err != nil {
		logging.Debug("Lifecycle", "Opportunistic pre-flight refresh failed, proceeding with current token: %v", err)
	}

	respBody, resp, err := m.doOnce(ctx, method, url, body)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return respBody, resp, nil
	}

	logging.Debug("Lifecycle", "Request to %s returned 401, forcing refresh and retrying once", url)
	if _, err := m.RefreshIfNeeded(ctx, true); err != nil {
		logging.Warn("Lifecycle", "Forced refresh after 401 failed: %v", err)
	}

	return m.doOnce(ctx, method, url, body)
}

// Clear removes the stored credentials and cancels any pending refresh
// schedule. Bearer returns "" afterwards.
func (m *Manager) Clear() error {
	return m.store.Clear()
}

// Close releases the manager's resources without touching the persisted
// record.
func (m *Manager) Close() error {
	return m.store.Close()
}

// doOnce issues a single authorized request and reads its body.
func (m *Manager) doOnce(ctx context.Context, method, url string, body []byte) ([]byte, *http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if bearer := m.Bearer(); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return respBody, resp, nil
}

// armProactiveRefresh (re)arms the store's one-shot timer, including the
// store's synchronous catch-up when the fire time has already passed. Used
// when a token set is first adopted (startup, SetInitialTokens).
func (m *Manager) armProactiveRefresh() {
	m.store.ScheduleProactiveRefresh(m.skew, m.proactiveRefreshHandler)
}

// scheduleProactiveRefresh re-arms the timer after a completed refresh. A
// freshly refreshed token that is already inside the skew window is not
// rescheduled: the store's catch-up would refresh it again immediately, and
// an issuer that only ever grants lifetimes shorter than the skew would turn
// that into a refresh loop. The 401 path covers actual rejection.
func (m *Manager) scheduleProactiveRefresh() {
	if m.store.IsExpiring(m.skew) {
		logging.Debug("Lifecycle", "Refreshed token already within skew, leaving refresh to on-demand paths")
		return
	}
	m.armProactiveRefresh()
}

// proactiveRefreshHandler performs the forced refresh the timer triggers; a
// failure leaves the old token in place and is surfaced the next time the
// token is actually used.
func (m *Manager) proactiveRefreshHandler() {
	ctx, cancel := context.WithTimeout(context.Background(), oidc.DefaultHTTPTimeout)
	defer cancel()

	if _, err := m.RefreshIfNeeded(ctx, true); err != nil {
		logging.Warn("Lifecycle", "Proactive token refresh failed, keeping stale token: %v", err)
	}
}
