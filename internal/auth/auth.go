// Package auth owns the sign-in lifecycle: which account is active, how an
// access token for a resource is obtained, and what happens on logout.
//
// An Authenticator is built once with New and handed to whatever needs
// tokens. Token acquisition tries the in-memory cache, then a silent
// refresh token redemption, and only when the identity platform demands
// interaction falls back to the interactive flow, once.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tonimelisma/spe-client/internal/logger"
	"github.com/tonimelisma/spe-client/internal/session"
	"github.com/tonimelisma/spe-client/pkg/spe"
	"golang.org/x/oauth2"
)

// ErrLoginDisabled is returned by Login when the client id, tenant id,
// container type id or API base URL is missing.
var ErrLoginDisabled = errors.New("login is disabled until the configuration is complete")

// expiryLeeway treats tokens this close to expiry as already expired.
const expiryLeeway = time.Minute

// Interactor runs an interactive token acquisition: device code or browser.
type Interactor interface {
	AcquireToken(ctx context.Context, scopes []string) (*oauth2.Token, error)
}

// IdentityProvider is the part of the identity platform used for silent
// acquisition and sign-out. *spe.IdentityClient implements it.
type IdentityProvider interface {
	RedeemRefreshToken(ctx context.Context, refreshToken string, scopes []string) (*oauth2.Token, error)
	LogoutURL(postLogoutRedirect string) string
}

// TokenCache persists the signed-in account. *session.Manager implements it.
type TokenCache interface {
	LoadAccount() (*session.State, error)
	SaveAccount(state *session.State) error
	DeleteAccount() error
}

// Options configures an Authenticator.
type Options struct {
	Identity     IdentityProvider
	Interactor   Interactor
	Cache        TokenCache
	Logger       logger.Logger
	LoginEnabled bool
	// OnLogout clears local preference flags. Its error is logged only.
	OnLogout func() error
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Authenticator is safe for concurrent use. Token acquisition for all
// resources is serialised so that at most one interactive prompt is shown.
type Authenticator struct {
	opts   Options
	logger logger.Logger

	mu           sync.Mutex
	account      *session.Account
	refreshToken string
	tokens       map[string]*oauth2.Token
}

// New builds an Authenticator and restores any account saved by a previous
// run.
func New(opts Options) *Authenticator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &Authenticator{
		opts:   opts,
		logger: logger.OrNoop(opts.Logger),
		tokens: make(map[string]*oauth2.Token),
	}

	if opts.Cache != nil {
		state, err := opts.Cache.LoadAccount()
		if err != nil {
			a.logger.Warn("could not load saved account", "error", err)
		} else if state != nil {
			acct := state.Account
			a.account = &acct
			a.refreshToken = state.RefreshToken
		}
	}
	return a
}

// IsAuthenticated reports whether an account is signed in.
func (a *Authenticator) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.account != nil
}

// User returns a copy of the signed-in account, or nil.
func (a *Authenticator) User() *session.Account {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.account == nil {
		return nil
	}
	acct := *a.account
	return &acct
}

// LoginEnabled reports whether the configuration allows signing in.
func (a *Authenticator) LoginEnabled() bool {
	return a.opts.LoginEnabled
}

// Login runs the interactive flow for the Graph scope and makes the
// resulting account active. Errors from the flow are returned unchanged in
// kind.
func (a *Authenticator) Login(ctx context.Context) error {
	if !a.opts.LoginEnabled {
		return ErrLoginDisabled
	}
	if a.opts.Interactor == nil {
		return fmt.Errorf("%w: no interactive flow configured", ErrLoginDisabled)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tok, err := a.opts.Interactor.AcquireToken(ctx, spe.Scopes(spe.GraphResource))
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	acct, err := accountFromIDToken(spe.IDToken(tok))
	if err != nil {
		a.logger.Warn("could not read id_token claims", "error", err)
	}

	a.account = &acct
	a.tokens = map[string]*oauth2.Token{normalizeResource(spe.GraphResource): tok}
	if tok.RefreshToken != "" {
		a.refreshToken = tok.RefreshToken
	}
	a.persistLocked()
	a.logger.Info("signed in", "username", acct.Username)
	return nil
}

// Logout forgets the account, cached tokens and preference flags, and
// returns the identity platform's sign-out URL for the caller to show.
// Failures along the way are logged, never returned.
func (a *Authenticator) Logout(ctx context.Context) string {
	a.mu.Lock()
	a.account = nil
	a.refreshToken = ""
	a.tokens = make(map[string]*oauth2.Token)
	a.mu.Unlock()

	if a.opts.Cache != nil {
		if err := a.opts.Cache.DeleteAccount(); err != nil {
			a.logger.Error("could not delete saved account", "error", err)
		}
	}
	if a.opts.OnLogout != nil {
		if err := a.opts.OnLogout(); err != nil {
			a.logger.Error("could not clear preferences", "error", err)
		}
	}

	if a.opts.Identity == nil {
		return ""
	}
	return a.opts.Identity.LogoutURL("")
}

// GetAccessToken returns a bearer token for resource, Microsoft Graph when
// resource is empty. It never returns an error: ("", false) means no token
// could be obtained and the caller should abort its operation.
func (a *Authenticator) GetAccessToken(ctx context.Context, resource string) (string, bool) {
	if resource == "" {
		resource = spe.GraphResource
	}
	key := normalizeResource(resource)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.account == nil {
		a.logger.Debug("no signed-in account", "resource", key)
		return "", false
	}

	if tok, ok := a.tokens[key]; ok && a.validLocked(tok) {
		return tok.AccessToken, true
	}

	scopes := spe.Scopes(key)
	tok, err := a.silentLocked(ctx, scopes)
	if err != nil {
		if !errors.Is(err, spe.ErrInteractionRequired) || a.opts.Interactor == nil {
			a.logger.Warn("silent token acquisition failed", "resource", key, "error", err)
			return "", false
		}

		a.logger.Info("interaction required, starting interactive sign-in", "resource", key)
		tok, err = a.opts.Interactor.AcquireToken(ctx, scopes)
		if err != nil {
			a.logger.Warn("interactive token acquisition failed", "resource", key, "error", err)
			return "", false
		}
	}

	a.tokens[key] = tok
	if tok.RefreshToken != "" && tok.RefreshToken != a.refreshToken {
		a.refreshToken = tok.RefreshToken
		a.persistLocked()
	}
	return tok.AccessToken, true
}

// GetSharePointToken returns a token for the SharePoint tenant at hostname.
func (a *Authenticator) GetSharePointToken(ctx context.Context, hostname string) (string, bool) {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		return "", false
	}
	return a.GetAccessToken(ctx, SharePointResource(hostname))
}

// SharePointResource turns a hostname, or a URL on that host, into a
// resource URI.
func SharePointResource(hostname string) string {
	hostname = strings.TrimPrefix(strings.TrimPrefix(hostname, "https://"), "http://")
	if i := strings.IndexByte(hostname, '/'); i >= 0 {
		hostname = hostname[:i]
	}
	return "https://" + hostname
}

func (a *Authenticator) silentLocked(ctx context.Context, scopes []string) (*oauth2.Token, error) {
	if a.opts.Identity == nil || a.refreshToken == "" {
		return nil, spe.ErrInteractionRequired
	}
	return a.opts.Identity.RedeemRefreshToken(ctx, a.refreshToken, scopes)
}

func (a *Authenticator) validLocked(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return a.opts.Now().Add(expiryLeeway).Before(tok.Expiry)
}

func (a *Authenticator) persistLocked() {
	if a.opts.Cache == nil || a.account == nil {
		return
	}
	state := &session.State{
		Account:      *a.account,
		RefreshToken: a.refreshToken,
		SavedAt:      a.opts.Now(),
	}
	if err := a.opts.Cache.SaveAccount(state); err != nil {
		a.logger.Warn("could not persist account", "error", err)
	}
}

func normalizeResource(resource string) string {
	return strings.TrimSuffix(resource, "/")
}
