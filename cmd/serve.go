package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a local JSON API for a browser front end",
	Long: `Starts a local HTTP server exposing containers, files, search, Copilot chat
sessions and, when diagnostics are enabled, the recent Graph calls and their
Prometheus metrics. Sign in with 'spe-client auth login' first.`,
	Args: cobra.NoArgs,
	RunE: runWithApp(serveLogic),
}

func serveLogic(a *app.App, cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	origins, _ := cmd.Flags().GetStringSlice("origin")

	srv := server.New(server.Options{
		SDK:             a.SDK,
		Auth:            a.Auth,
		Diag:            a.Diag,
		ContainerTypeID: a.Config.ContainerTypeID,
		ShowDiagnostics: a.ShowDiagnostics(),
		AllowedOrigins:  origins,
		Logger:          a.Logger,
	})

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s (Ctrl+C to stop)\n", addr)
	return srv.ListenAndServe(commandContext(cmd), addr)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address to listen on")
	serveCmd.Flags().StringSlice("origin", nil, "Allowed CORS origin (repeatable; default the local dev servers)")
}
