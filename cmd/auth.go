// Package cmd (auth.go) defines the commands that manage the signed-in
// account: 'auth login', 'auth logout', 'auth status' and 'auth token'.
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/auth"
	"github.com/tonimelisma/spe-client/internal/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication with Microsoft 365",
	Long:  `Provides subcommands to sign in, sign out, check the authentication status and print access tokens.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your Microsoft 365 account",
	Long: `Starts an interactive sign-in. With auth_flow "device" (the default) you are
shown a code to enter at a Microsoft URL; with auth_flow "browser" a browser
window opens and the result is received on a local port.

Login is disabled until client_id, tenant_id, container_type_id and
api_base_url are all configured.`,
	Args: cobra.NoArgs,
	RunE: runWithApp(authLoginLogic),
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the current session and log out",
	Long:  `Removes the saved account, cached tokens and UI preference flags, and prints the URL that ends the browser session with Microsoft.`,
	Args:  cobra.NoArgs,
	RunE:  runWithApp(authLogoutLogic),
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the current authentication status",
	Long:  `Shows the signed-in account, a pending device code sign-in, or what configuration is missing before you can sign in.`,
	Args:  cobra.NoArgs,
	RunE:  runWithApp(authStatusLogic),
}

var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an access token",
	Long:  `Prints an access token for Microsoft Graph, or for another resource with --resource, or for a SharePoint host with --hostname.`,
	Args:  cobra.NoArgs,
	RunE:  runWithApp(authTokenLogic),
}

func authLoginLogic(a *app.App, cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if a.Auth.IsAuthenticated() {
		fmt.Fprintln(out, "You are already logged in. To switch accounts, run 'spe-client auth logout' first.")
		ui.DisplayUser(out, a.Auth.User())
		return nil
	}

	if !a.Auth.LoginEnabled() {
		return fmt.Errorf("%w: %v", auth.ErrLoginDisabled, a.Config.Validate())
	}

	if err := a.Auth.Login(commandContext(cmd)); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	ui.PrintSuccess(out, "Login successful!")
	ui.DisplayUser(out, a.Auth.User())
	return nil
}

func authLogoutLogic(a *app.App, cmd *cobra.Command, args []string) error {
	logoutURL := a.Auth.Logout(commandContext(cmd))
	if err := a.Session.DeleteAuthState(); err != nil {
		a.Logger.Warn("could not delete pending sign-in", "error", err)
	}

	out := cmd.OutOrStdout()
	ui.PrintSuccess(out, "You have been logged out.")
	if logoutURL != "" {
		fmt.Fprintf(out, "To also end your browser session, visit:\n%s\n", logoutURL)
	}
	return nil
}

func authStatusLogic(a *app.App, cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if !a.Auth.LoginEnabled() {
		fmt.Fprintf(out, "Login is disabled: %v\n", a.Config.Validate())
	}

	pending, err := a.Session.LoadAuthState()
	if err != nil {
		a.Logger.Warn("could not read pending sign-in", "error", err)
	}
	if pending != nil {
		fmt.Fprintf(out, "A login is pending. Go to %s and enter code %s (expires %s).\n",
			pending.VerificationURI, pending.UserCode, pending.ExpiresAt.Local().Format(time.Kitchen))
	}

	if !a.Auth.IsAuthenticated() {
		fmt.Fprintln(out, "You are not logged in. Run 'spe-client auth login'.")
		return nil
	}
	ui.DisplayUser(out, a.Auth.User())

	verify, _ := cmd.Flags().GetBool("verify")
	if !verify {
		return nil
	}
	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}
	me, err := a.SDK.GetMe(ctx, token)
	if err != nil {
		return fmt.Errorf("verifying session: %w", err)
	}
	fmt.Fprintf(out, "Microsoft Graph confirms: %s (%s)\n", me.DisplayName, me.UserPrincipalName)
	return nil
}

func authTokenLogic(a *app.App, cmd *cobra.Command, args []string) error {
	resource, _ := cmd.Flags().GetString("resource")
	hostname, _ := cmd.Flags().GetString("hostname")
	if resource != "" && hostname != "" {
		return errors.New("--resource and --hostname are mutually exclusive")
	}
	if hostname != "" {
		resource = auth.SharePointResource(hostname)
	}

	tok, err := a.TokenSource(commandContext(cmd), resource).Token()
	if err != nil {
		return errNotLoggedIn
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
	return nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authTokenCmd)

	authStatusCmd.Flags().Bool("verify", false, "Confirm the session against Microsoft Graph")
	authTokenCmd.Flags().String("resource", "", "Resource URI (default Microsoft Graph)")
	authTokenCmd.Flags().String("hostname", "", "SharePoint hostname, e.g. contoso.sharepoint.com")
}
