package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/copilot"
	"github.com/tonimelisma/spe-client/internal/ui"
)

var copilotCmd = &cobra.Command{
	Use:   "copilot",
	Short: "Copilot chat scoped to a container",
}

var copilotOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Start a chat session and print its embed configuration",
	Long: `Opens a Copilot chat session for a container and prints the JSON a host page
needs to mount the chat widget. The SharePoint token the widget will ask for is
acquired once to check the session; on failure the session is reset with a
new mount key.`,
	Args: cobra.NoArgs,
	RunE: runWithApp(copilotOpenLogic),
}

func copilotOpenLogic(a *app.App, cmd *cobra.Command, args []string) error {
	containerID, err := ui.ParseContainerFlag(cmd, true)
	if err != nil {
		return err
	}
	presentation := copilot.Desktop
	if mobile, _ := cmd.Flags().GetBool("mobile"); mobile {
		presentation = copilot.Mobile
	}

	ctx := commandContext(cmd)
	hostname, _ := cmd.Flags().GetString("hostname")
	if hostname == "" {
		token, err := graphToken(ctx, a)
		if err != nil {
			return err
		}
		c, err := a.SDK.GetContainer(ctx, token, containerID)
		if err != nil {
			return fmt.Errorf("getting container: %w", err)
		}
		hostname = c.WebURL
	}
	if copilot.HostnameOf(hostname) == "" {
		return fmt.Errorf("no SharePoint hostname for container %s (pass --hostname)", containerID)
	}

	sess := copilot.NewSession(containerID, hostname, presentation, a.Auth, a.Logger)
	sess.Open()

	if _, err := sess.AuthProvider()(ctx); err != nil {
		notifier(cmd).Error("Copilot chat failed", err.Error())
		if sess.NeedsReset() {
			sess.Reset()
		}
	}

	data, err := json.MarshalIndent(sess.EmbedConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding embed configuration: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if u, ok := sess.ExternalChatURL(); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "Open the chat on the site: %s\n", u)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(copilotCmd)
	copilotCmd.AddCommand(copilotOpenCmd)
	ui.AddContainerFlag(copilotOpenCmd, "")
	copilotOpenCmd.Flags().Bool("mobile", false, "Use the bottom drawer presentation and offer the site chat link")
	copilotOpenCmd.Flags().String("hostname", "", "SharePoint hostname (default from the container's web URL)")
}
