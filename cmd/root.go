// Package cmd (root.go) defines the root command for the spe-client CLI.
// It sets up global flags and registers the subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "spe-client",
	Short: "A CLI client for SharePoint Embedded",
	Long: `spe-client is a command-line interface for SharePoint Embedded file storage
containers. It signs in with your Microsoft 365 account and talks to Microsoft Graph.

Current capabilities include:
  - Authentication management (login, logout, status, token)
  - Listing, inspecting and creating containers
  - Browsing, uploading, creating and deleting files and folders
  - Searching files across a container type or within one container
  - Opening Office documents and issuing preview links
  - Copilot chat sessions scoped to a container
  - An interactive terminal browser and a local JSON API`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging for SDK and internal operations")
	rootCmd.PersistentFlags().Bool("diagnostics", false, "Print the Graph calls made by the command when it finishes")
}
