package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/browser"
	"github.com/tonimelisma/spe-client/internal/tui"
	"github.com/tonimelisma/spe-client/internal/ui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse a container in an interactive terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runWithApp(browseLogic),
}

func browseLogic(a *app.App, cmd *cobra.Command, args []string) error {
	containerID, err := ui.ParseContainerFlag(cmd, true)
	if err != nil {
		return err
	}
	// The TUI owns the terminal: nothing may log to stderr or prompt.
	a = a.Headless()
	if !a.Auth.IsAuthenticated() {
		return errNotLoggedIn
	}

	ctx := commandContext(cmd)
	title := containerID
	if token, ok := a.Auth.GetAccessToken(ctx, ""); ok {
		if c, err := a.SDK.GetContainer(ctx, token, containerID); err == nil && c.DisplayName != "" {
			title = c.DisplayName
		}
	}

	// No notifier: the TUI reports outcomes in its status line.
	b := browser.New(containerID, a.Auth, a.SDK, browser.WithLogger(a.Logger))
	if err := tui.Run(ctx, b, title); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(browseCmd)
	ui.AddContainerFlag(browseCmd, "")
}
