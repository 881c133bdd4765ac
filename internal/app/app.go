// Package app wires configuration, authentication, the Graph SDK and
// diagnostics into the object every command works from.
package app

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/auth"
	"github.com/tonimelisma/spe-client/internal/config"
	"github.com/tonimelisma/spe-client/internal/diag"
	"github.com/tonimelisma/spe-client/internal/logger"
	"github.com/tonimelisma/spe-client/internal/session"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

// App holds the shared services for one CLI invocation.
type App struct {
	Config   *config.Configuration
	Auth     *auth.Authenticator
	SDK      SDK
	Identity *spe.IdentityClient
	Diag     *diag.Ring
	Session  *session.Manager
	Logger   logger.Logger

	// ForceDiagnostics enables the diagnostics panel for this run only.
	ForceDiagnostics bool
}

// NewApp loads the configuration and builds the services. The --debug and
// --diagnostics flags override the configuration for this run.
func NewApp(cmd *cobra.Command) (*App, error) {
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		cfg.Debug = true
	}

	log := logger.NewDefaultLogger(cfg.Debug)

	mgr, err := session.NewManager()
	if err != nil {
		return nil, fmt.Errorf("creating session manager: %w", err)
	}

	a := newApp(cfg, mgr, log)
	a.ForceDiagnostics, _ = cmd.Flags().GetBool("diagnostics")
	return a, nil
}

func newApp(cfg *config.Configuration, mgr *session.Manager, log logger.Logger) *App {
	return build(cfg, mgr, log, diag.NewRing(diag.DefaultCapacity), true)
}

// Headless returns a copy of a for runs that own the terminal, such as the
// TUI. It logs nowhere and never prompts: when the session cannot be
// refreshed silently, token requests fail instead. Calls are still recorded
// in a's diagnostics ring.
func (a *App) Headless() *App {
	h := build(a.Config, a.Session, logger.NoopLogger{}, a.Diag, false)
	h.ForceDiagnostics = a.ForceDiagnostics
	return h
}

func build(cfg *config.Configuration, mgr *session.Manager, log logger.Logger, ring *diag.Ring, interactive bool) *App {
	identity := spe.NewIdentityClient(cfg.ClientID, cfg.TenantID,
		spe.WithIdentityLogger(log),
		spe.WithIdentityHTTPClient(newHTTPClient(cfg.HTTP.Timeout)),
	)

	var interactor auth.Interactor
	if interactive {
		interactor = newInteractor(cfg, identity, mgr, log)
	}

	authenticator := auth.New(auth.Options{
		Identity:     identity,
		Interactor:   interactor,
		Cache:        mgr,
		Logger:       log,
		LoginEnabled: cfg.LoginEnabled(),
		OnLogout:     cfg.ResetPreferences,
	})

	return &App{
		Config:   cfg,
		Auth:     authenticator,
		SDK:      NewLiveSDK(cfg.APIBaseURL, cfg.HTTP.Timeout, log, ring),
		Identity: identity,
		Diag:     ring,
		Session:  mgr,
		Logger:   log,
	}
}

func newInteractor(cfg *config.Configuration, identity *spe.IdentityClient, mgr *session.Manager, log logger.Logger) auth.Interactor {
	if cfg.AuthFlow == config.AuthFlowBrowser {
		return &auth.BrowserInteractor{
			Flow:    identity,
			Out:     os.Stderr,
			OpenURL: OpenBrowser,
			Logger:  log,
		}
	}
	return &auth.DeviceCodeInteractor{
		Flow:    identity,
		Out:     os.Stderr,
		Pending: mgr,
		Logger:  log,
	}
}

// ShowDiagnostics reports whether the diagnostics surfaces are enabled.
func (a *App) ShowDiagnostics() bool {
	return a.ForceDiagnostics || a.Config.Debug || a.Config.Preferences.ShowDiagnostics
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	return c.Start()
}
