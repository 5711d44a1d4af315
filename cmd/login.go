package cmd

import (
	"fmt"
	"time"

	"oidckit/internal/signin"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginSilent    bool
	loginNoBrowser bool
	loginHint      string
	loginTimeout   time.Duration
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the configured provider",
	Long: `Sign in to the configured OpenID Connect provider.

This command starts a browser-based authorization code flow with PKCE,
receives the redirect on a local port, exchanges the code for tokens,
and stores them for later use.

Examples:
  oidckit login                  # Interactive browser sign-in
  oidckit login --silent         # Re-authenticate without prompting (requires active provider session)
  oidckit login --no-browser     # Print the URL instead of opening a browser
  oidckit login --hint me@example.com`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginSilent, "silent", false, "Attempt sign-in without user interaction (prompt=none)")
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	loginCmd.Flags().StringVar(&loginHint, "hint", "", "Login hint to pre-fill at the provider")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 0, "Override how long to wait for the browser round-trip")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	openBrowser := signin.OpenBrowser
	if loginNoBrowser {
		openBrowser = func(url string) error {
			fmt.Printf("Open this URL in your browser:\n  %s\n\n", url)
			return nil
		}
	}

	orch := sess.orchestrator(openBrowser, loginTimeout)

	var s *spinner.Spinner
	if !quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for sign-in to complete in the browser..."
		s.Start()
	}

	result, err := orch.Login(cmd.Context(), &signin.LoginOptions{
		Silent:    loginSilent,
		LoginHint: loginHint,
	})
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return &authFailedError{err: err}
	}

	if result.UserInfo != nil && result.UserInfo.Email != "" {
		authPrint("Signed in as %s\n", result.UserInfo.Email)
	} else {
		authPrintln("Signed in")
	}
	if ts := result.TokenSet; ts != nil && ts.HasExpiry() {
		authPrint("Token expires %s\n", formatExpiryWithDirection(ts.ExpiresAt))
	}
	return nil
}
