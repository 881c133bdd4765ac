package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tonimelisma/spe-client/internal/logger"
	"github.com/tonimelisma/spe-client/internal/session"
	"github.com/tonimelisma/spe-client/pkg/spe"
	"golang.org/x/oauth2"
)

// slowDownIncrement is added to the polling interval on every slow_down.
const slowDownIncrement = 5 * time.Second

// DeviceFlow is the identity platform surface for device code sign-in.
type DeviceFlow interface {
	InitiateDeviceCodeFlow(ctx context.Context, scopes []string) (*spe.DeviceCodeResponse, error)
	VerifyDeviceCode(ctx context.Context, deviceCode string) (*oauth2.Token, error)
}

// PendingStore records an in-progress device code sign-in.
type PendingStore interface {
	SaveAuthState(state *session.AuthState) error
	DeleteAuthState() error
}

// DeviceCodeInteractor signs in by showing a code that the user enters on
// another device. AcquireToken blocks until sign-in finishes, the code
// expires, or ctx is cancelled.
type DeviceCodeInteractor struct {
	Flow    DeviceFlow
	Out     io.Writer
	Pending PendingStore
	Logger  logger.Logger
	// PollInterval overrides the interval the identity platform advertises.
	PollInterval time.Duration
}

// AcquireToken implements Interactor.
func (d *DeviceCodeInteractor) AcquireToken(ctx context.Context, scopes []string) (*oauth2.Token, error) {
	log := logger.OrNoop(d.Logger)

	resp, err := d.Flow.InitiateDeviceCodeFlow(ctx, scopes)
	if err != nil {
		return nil, err
	}

	lifetime := time.Duration(resp.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = spe.DefaultDeviceCodeLife
	}
	deadline := time.Now().Add(lifetime)

	if d.Out != nil {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("To sign in, open %s and enter the code %s", resp.VerificationURI, resp.UserCode)
		}
		fmt.Fprintln(d.Out, msg)
	}
	if d.Pending != nil {
		if err := d.Pending.SaveAuthState(&session.AuthState{
			VerificationURI: resp.VerificationURI,
			UserCode:        resp.UserCode,
			ExpiresAt:       deadline,
		}); err != nil {
			log.Warn("could not record pending sign-in", "error", err)
		}
		defer func() {
			if err := d.Pending.DeleteAuthState(); err != nil {
				log.Warn("could not clear pending sign-in", "error", err)
			}
		}()
	}

	interval := d.PollInterval
	if interval <= 0 {
		interval = time.Duration(resp.Interval) * time.Second
	}
	if interval <= 0 {
		interval = spe.DefaultPollInterval
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		tok, err := d.Flow.VerifyDeviceCode(ctx, resp.DeviceCode)
		switch {
		case err == nil:
			return tok, nil
		case errors.Is(err, spe.ErrAuthorizationPending):
			log.Debug("waiting for device code sign-in")
		case errors.Is(err, spe.ErrSlowDown):
			interval += slowDownIncrement
		default:
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, spe.ErrTokenExpired
		}
		timer.Reset(interval)
	}
}

// CodeFlow is the identity platform surface for browser sign-in.
type CodeFlow interface {
	OAuth2Config(redirectURL string, scopes []string) *oauth2.Config
	CompleteAuthentication(ctx context.Context, cfg *oauth2.Config, code, verifier string) (*oauth2.Token, error)
}

// BrowserInteractor signs in with the authorization code flow and PKCE. A
// loopback listener receives the redirect.
type BrowserInteractor struct {
	Flow CodeFlow
	Out  io.Writer
	// OpenURL launches a browser. When nil the URL is only printed.
	OpenURL func(string) error
	// ListenAddr defaults to 127.0.0.1 on a random port.
	ListenAddr string
	Logger     logger.Logger
}

type callbackResult struct {
	code string
	err  error
}

// AcquireToken implements Interactor.
func (b *BrowserInteractor) AcquireToken(ctx context.Context, scopes []string) (*oauth2.Token, error) {
	log := logger.OrNoop(b.Logger)

	addr := b.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("starting redirect listener: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	cfg := b.Flow.OAuth2Config(fmt.Sprintf("http://localhost:%d/", port), scopes)
	authURL, verifier, state, err := spe.StartAuthentication(cfg)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	results := make(chan callbackResult, 1)
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		code, err := parseCallback(req.URL.Query(), state)
		if err != nil {
			http.Error(w, "Sign-in failed. You can close this window.", http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Sign-in complete. You can close this window.")
		}
		select {
		case results <- callbackResult{code: code, err: err}:
		default:
		}
	})

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("redirect listener stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if b.Out != nil {
		fmt.Fprintf(b.Out, "Open the following URL in your browser to sign in:\n%s\n", authURL)
	}
	if b.OpenURL != nil {
		if err := b.OpenURL(authURL); err != nil {
			log.Warn("could not open browser", "error", err)
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		return b.Flow.CompleteAuthentication(ctx, cfg, res.code, verifier)
	}
}

// parseCallback validates the redirect query and returns the code.
func parseCallback(q url.Values, wantState string) (string, error) {
	if e := q.Get("error"); e != "" {
		if e == "access_denied" {
			return "", fmt.Errorf("%w: %s", spe.ErrAuthorizationDeclined, q.Get("error_description"))
		}
		return "", fmt.Errorf("%w: %s: %s", spe.ErrOperationFailed, e, q.Get("error_description"))
	}
	if q.Get("state") != wantState {
		return "", fmt.Errorf("%w: state mismatch in redirect", spe.ErrInvalidRequest)
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: redirect carried no code", spe.ErrInvalidRequest)
	}
	return code, nil
}
