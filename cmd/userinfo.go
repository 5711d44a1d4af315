package cmd

import (
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// userinfoCmd represents the userinfo command
var userinfoCmd = &cobra.Command{
	Use:   "userinfo",
	Short: "Fetch the signed-in user's profile",
	Long: `Fetch the user profile from the provider's userinfo endpoint using
the stored access token. The token is refreshed first if it is about
to expire.`,
	RunE: runUserinfo,
}

func init() {
	rootCmd.AddCommand(userinfoCmd)
}

func runUserinfo(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.manager.Bearer() == "" {
		return errAuthRequired
	}

	ctx := cmd.Context()
	if _, err := sess.manager.RefreshIfNeeded(ctx, false); err != nil {
		return err
	}

	info, err := sess.client.FetchUserInfo(ctx, sess.manager.Bearer())
	if err != nil {
		return err
	}
	if info == nil {
		authPrint("Profile:   %s\n", text.FgHiBlack.Sprint("none (provider returned no profile)"))
		return nil
	}

	authPrint("Subject:   %s\n", info.Subject)
	if info.Name != "" {
		authPrint("Name:      %s\n", info.Name)
	}
	if info.Email != "" {
		verified := text.FgYellow.Sprint("unverified")
		if info.EmailVerified {
			verified = text.FgGreen.Sprint("verified")
		}
		authPrint("Email:     %s (%s)\n", info.Email, verified)
	}
	return nil
}
