package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oidckit/internal/config"
	"oidckit/internal/credstore"
	"oidckit/internal/lifecycle"
	"oidckit/internal/oidc"
	"oidckit/internal/signin"
	"oidckit/pkg/logging"

	"github.com/jedib0t/go-pretty/v6/text"
)

// errAuthRequired signals that a command needs stored credentials but none
// exist. Mapped to ExitCodeAuthRequired.
var errAuthRequired = errors.New("not signed in. Run: oidckit login")

// authFailedError wraps a sign-in flow failure. Mapped to ExitCodeAuthFailed.
type authFailedError struct {
	err error
}

func (e *authFailedError) Error() string {
	return fmt.Sprintf("sign-in failed: %v", e.err)
}

func (e *authFailedError) Unwrap() error {
	return e.err
}

// session bundles the wired-up components a command operates on.
type session struct {
	cfg     config.Config
	client  *oidc.Client
	store   *credstore.Store
	manager *lifecycle.Manager

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// newSession loads and validates the configuration, then wires the protocol
// client, credential store, and lifecycle manager together. The caller must
// call Close when done.
func newSession() (*session, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	client, err := oidc.NewClient(oidc.ClientConfig{
		IssuerURL:             cfg.Provider.IssuerURL,
		ClientID:              cfg.Provider.ClientID,
		RedirectURI:           fmt.Sprintf("http://localhost:%d/callback", cfg.Callback.Port),
		PostLogoutRedirectURI: cfg.Provider.PostLogoutRedirectURI,
		Scopes:                cfg.Provider.Scopes,
	})
	if err != nil {
		return nil, err
	}

	store, err := credstore.NewStore(credstore.Config{Path: cfg.Storage.Path})
	if err != nil {
		return nil, err
	}

	manager := lifecycle.NewManager(lifecycle.Config{
		Client:      client,
		Store:       store,
		RefreshSkew: time.Duration(cfg.Refresh.SkewSeconds) * time.Second,
	})

	s := &session{
		cfg:     cfg,
		client:  client,
		store:   store,
		manager: manager,
	}

	if cfg.Storage.Watch {
		ctx, cancel := context.WithCancel(context.Background())
		s.watchCancel = cancel
		s.watchDone = make(chan struct{})
		go func() {
			defer close(s.watchDone)
			if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("CLI", "Credential watcher stopped: %v", err)
			}
		}()
	}

	return s, nil
}

// Close releases the session's resources.
func (s *session) Close() {
	if s.watchCancel != nil {
		s.watchCancel()
		<-s.watchDone
	}
	_ = s.manager.Close()
}

// orchestrator builds a sign-in orchestrator over the session. openBrowser
// overrides browser launching for --no-browser; a positive timeout overrides
// the configured callback wait.
func (s *session) orchestrator(openBrowser func(string) error, timeout time.Duration) *signin.Orchestrator {
	if timeout <= 0 {
		timeout = time.Duration(s.cfg.Callback.TimeoutSeconds) * time.Second
	}
	return signin.NewOrchestrator(signin.Config{
		Client:       s.client,
		Manager:      s.manager,
		CallbackPort: s.cfg.Callback.Port,
		OpenBrowser:  openBrowser,
		Timeout:      timeout,
	})
}

// authPrint prints unless --quiet is set.
func authPrint(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format, args...)
	}
}

// authPrintln prints a line unless --quiet is set.
func authPrintln(msg string) {
	if !quiet {
		fmt.Println(msg)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	expiredAgo := -remaining
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(expiredAgo))
}
