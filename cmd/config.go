package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the configuration and set UI preferences",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runWithApp(configShowLogic),
}

var configSetCmd = &cobra.Command{
	Use:       "set <show_diagnostics|compact_view> <true|false>",
	Short:     "Set a UI preference flag",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"show_diagnostics", "compact_view"},
	RunE:      runWithApp(configSetLogic),
}

func configShowLogic(a *app.App, cmd *cobra.Command, args []string) error {
	c := a.Config
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config file:        %s\n", c.Path())
	fmt.Fprintf(out, "Client ID:          %s\n", orUnset(c.ClientID))
	fmt.Fprintf(out, "Tenant ID:          %s\n", orUnset(c.TenantID))
	fmt.Fprintf(out, "Container type ID:  %s\n", orUnset(c.ContainerTypeID))
	fmt.Fprintf(out, "API base URL:       %s\n", orUnset(c.APIBaseURL))
	fmt.Fprintf(out, "Auth flow:          %s\n", c.AuthFlow)
	fmt.Fprintf(out, "HTTP timeout:       %s\n", c.HTTP.Timeout)
	fmt.Fprintf(out, "Show diagnostics:   %t\n", c.Preferences.ShowDiagnostics)
	fmt.Fprintf(out, "Compact view:       %t\n", c.Preferences.CompactView)
	if err := c.Validate(); err != nil {
		fmt.Fprintf(out, "\nLogin is disabled: %v\n", err)
	}
	return nil
}

func configSetLogic(a *app.App, cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[1], err)
	}

	switch args[0] {
	case "show_diagnostics":
		a.Config.Preferences.ShowDiagnostics = value
	case "compact_view":
		a.Config.Preferences.CompactView = value
	default:
		return fmt.Errorf("unknown preference %q", args[0])
	}

	if err := a.Config.Save(); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %t\n", args[0], value)
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
