package cmd

import (
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session status",
	Long: `Show whether credentials are stored, when the access token expires,
and whether the session can be refreshed without user interaction.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	authPrint("Provider:  %s\n", sess.cfg.Provider.IssuerURL)

	ts := sess.manager.Current()
	if ts == nil {
		authPrint("Status:    %s\n", text.FgYellow.Sprint("Not signed in"))
		authPrint("           Run: oidckit login\n")
		return errAuthRequired
	}

	authPrint("Status:    %s\n", text.FgGreen.Sprint("Signed in"))
	if ts.HasExpiry() {
		authPrint("Expires:   %s\n", formatExpiryWithDirection(ts.ExpiresAt))
	} else {
		authPrint("Expires:   %s\n", text.FgHiBlack.Sprint("unknown"))
	}
	if sess.manager.CanRefresh() {
		authPrint("Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	} else {
		authPrint("Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
	}
	authPrint("Storage:   %s\n", sess.store.Path())
	return nil
}
