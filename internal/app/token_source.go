package app

import (
	"context"
	"sync"

	"github.com/tonimelisma/spe-client/pkg/spe"
	"golang.org/x/oauth2"
)

// AccessTokenProvider is the part of the Authenticator a token source needs.
type AccessTokenProvider interface {
	GetAccessToken(ctx context.Context, resource string) (string, bool)
}

// authTokenSource adapts an AccessTokenProvider to oauth2.TokenSource for
// one resource. onNewToken is called whenever the access token changes.
type authTokenSource struct {
	ctx        context.Context
	provider   AccessTokenProvider
	resource   string
	mu         sync.Mutex
	lastToken  string
	onNewToken func(token *oauth2.Token)
}

func newAuthTokenSource(ctx context.Context, provider AccessTokenProvider, resource string, onNew func(token *oauth2.Token)) *authTokenSource {
	return &authTokenSource{
		ctx:        ctx,
		provider:   provider,
		resource:   resource,
		onNewToken: onNew,
	}
}

// Token implements oauth2.TokenSource. It returns spe.ErrReauthRequired
// when no token can be obtained.
func (s *authTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	access, ok := s.provider.GetAccessToken(s.ctx, s.resource)
	if !ok {
		return nil, spe.ErrReauthRequired
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if s.lastToken != access {
		s.lastToken = access
		if s.onNewToken != nil {
			s.onNewToken(tok)
		}
	}
	return tok, nil
}

// TokenSource returns a token source for resource backed by the
// Authenticator. An empty resource means Graph.
func (a *App) TokenSource(ctx context.Context, resource string) oauth2.TokenSource {
	return newAuthTokenSource(ctx, a.Auth, resource, func(*oauth2.Token) {
		a.Logger.Debug("access token issued", "resource", resource)
	})
}
