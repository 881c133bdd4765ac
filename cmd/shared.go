package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/ui"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

// errNotLoggedIn is returned when a command needs a token and none can be
// obtained.
var errNotLoggedIn = fmt.Errorf("%w: you are not logged in, run 'spe-client auth login'", spe.ErrReauthRequired)

type logicFunc func(a *app.App, cmd *cobra.Command, args []string) error

// runWithApp builds the App, runs logic and prints the diagnostics panel
// when it is enabled.
func runWithApp(logic logicFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := app.NewApp(cmd)
		if err != nil {
			return fmt.Errorf("error creating app: %w", err)
		}
		err = logic(a, cmd, args)
		if a.ShowDiagnostics() {
			fmt.Fprintln(cmd.ErrOrStderr())
			ui.DisplayDiagnostics(cmd.ErrOrStderr(), a.Diag.Recent())
		}
		return err
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// graphToken returns a Graph access token for the signed-in account.
func graphToken(ctx context.Context, a *app.App) (string, error) {
	token, ok := a.Auth.GetAccessToken(ctx, "")
	if !ok {
		return "", errNotLoggedIn
	}
	return token, nil
}

// containerTypeID returns --type when set, else the configured id.
func containerTypeID(a *app.App, cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString("type")
	if id == "" {
		id = a.Config.ContainerTypeID
	}
	if id == "" {
		return "", errors.New("no container type id configured (set container_type_id or SPE_CONTAINER_TYPE_ID, or pass --type)")
	}
	return id, nil
}

func notifier(cmd *cobra.Command) *ui.ConsoleNotifier {
	return &ui.ConsoleNotifier{W: cmd.ErrOrStderr()}
}
