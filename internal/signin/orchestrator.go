package signin

import (
	"context"
	"fmt"
	"time"

	"oidckit/internal/lifecycle"
	"oidckit/internal/oidc"
	"oidckit/pkg/logging"
)

// Orchestrator drives the end-to-end sign-in flow: build the authorization
// URL, hand it to the browser, receive the callback locally, exchange the
// code, and adopt the resulting tokens into the lifecycle manager.
type Orchestrator struct {
	client       *oidc.Client
	manager      *lifecycle.Manager
	callbackPort int
	openBrowser  func(string) error
	timeout      time.Duration
}

// Config configures the orchestrator.
type Config struct {
	// Client performs the protocol operations. Its configured redirect URI
	// must point at the local callback server's port.
	Client *oidc.Client

	// Manager adopts the tokens once the flow completes.
	Manager *lifecycle.Manager

	// CallbackPort is the local callback port; 0 selects the default.
	CallbackPort int

	// OpenBrowser overrides how the authorization URL reaches the user.
	// Defaults to OpenBrowser; tests and --no-browser substitute their own.
	OpenBrowser func(string) error

	// Timeout bounds the wait for the user to finish authenticating.
	// Defaults to DefaultCallbackTimeout.
	Timeout time.Duration
}

// LoginOptions carries per-attempt options.
type LoginOptions struct {
	// Silent attempts re-authentication with prompt=none, succeeding only
	// if the user still has an active provider session.
	Silent bool

	// LoginHint pre-fills the provider's login form, typically with the
	// email from a previous session.
	LoginHint string
}

// LoginResult is the outcome of a completed sign-in.
type LoginResult struct {
	TokenSet *oidc.TokenSet

	// UserInfo is the profile fetched after the exchange. Nil when the
	// provider has no profile yet; fetching it is best-effort.
	UserInfo *oidc.UserInfo
}

// NewOrchestrator creates a sign-in orchestrator.
func NewOrchestrator(cfg Config) *Orchestrator {
	open := cfg.OpenBrowser
	if open == nil {
		open = OpenBrowser
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	return &Orchestrator{
		client:       cfg.Client,
		manager:      cfg.Manager,
		callbackPort: cfg.CallbackPort,
		openBrowser:  open,
		timeout:      timeout,
	}
}

// Login runs one authorization attempt end to end. On any failure or
// cancellation the client's flow state is cleared so a stale code/state pair
// can never be accepted later.
func (o *Orchestrator) Login(ctx context.Context, opts *LoginOptions) (*LoginResult, error) {
	flowCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := NewCallbackServer(o.callbackPort)
	if _, err := server.Start(flowCtx); err != nil {
		return nil, err
	}

	var authOpts *oidc.AuthorizeOptions
	if opts != nil {
		authOpts = &oidc.AuthorizeOptions{LoginHint: opts.LoginHint}
		if opts.Silent {
			authOpts.Prompt = "none"
		}
	}

	authURL, err := o.client.BuildAuthorizeURL(authOpts)
	if err != nil {
		return nil, err
	}

	if err := o.openBrowser(authURL); err != nil {
		o.client.ClearStored()
		return nil, fmt.Errorf("failed to open authorization URL: %w", err)
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, o.timeout)
	defer cancelWait()

	result, err := server.WaitForCallback(waitCtx)
	if err != nil {
		o.client.ClearStored()
		return nil, fmt.Errorf("authorization callback failed: %w", err)
	}

	if result.IsError() {
		o.client.ClearStored()
		if result.ErrorDescription != "" {
			return nil, fmt.Errorf("authorization failed: %s - %s", result.Error, result.ErrorDescription)
		}
		return nil, fmt.Errorf("authorization failed: %s", result.Error)
	}

	ts, err := o.client.ExchangeCode(ctx, result.Code, result.State)
	if err != nil {
		o.client.ClearStored()
		return nil, err
	}

	if err := o.manager.SetInitialTokens(ts); err != nil {
		return nil, err
	}

	// Missing profile is not an error; a fetch failure only costs us the
	// display name.
	userInfo, err := o.client.FetchUserInfo(ctx, ts.AccessToken)
	if err != nil {
		logging.Warn("SignIn", "Failed to fetch userinfo after sign-in: %v", err)
		userInfo = nil
	}

	return &LoginResult{TokenSet: ts, UserInfo: userInfo}, nil
}

// Logout clears the local credentials and flow state and returns the
// RP-initiated logout URL. Opening the URL (to end the provider-side
// session) is best-effort; local state is cleared regardless.
func (o *Orchestrator) Logout(openInBrowser bool) (string, error) {
	var idToken string
	if ts := o.manager.Current(); ts != nil {
		idToken = ts.IDToken
	}

	logoutURL := o.client.BuildLogoutURL(idToken)

	if openInBrowser {
		if err := o.openBrowser(logoutURL); err != nil {
			logging.Warn("SignIn", "Failed to open logout URL, provider session may remain active: %v", err)
		}
	}

	o.client.ClearStored()
	if err := o.manager.Clear(); err != nil {
		return logoutURL, err
	}

	return logoutURL, nil
}
