package cmd

import (
	"fmt"

	"oidckit/internal/signin"

	"github.com/spf13/cobra"
)

// Logout-specific flags
var (
	logoutNoBrowser bool
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear stored credentials",
	Long: `Sign out of the provider and clear the stored credentials.

Local credentials are always removed. The provider-side session is ended
by opening the RP-initiated logout URL in the browser; with --no-browser
the URL is printed instead.`,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutNoBrowser, "no-browser", false, "Print the logout URL instead of opening a browser")

	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	orch := sess.orchestrator(signin.OpenBrowser, 0)

	logoutURL, err := orch.Logout(!logoutNoBrowser)
	if err != nil {
		return err
	}

	if logoutNoBrowser {
		fmt.Printf("Open this URL to end the provider session:\n  %s\n\n", logoutURL)
	}
	authPrintln("Signed out")
	return nil
}
