package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonimelisma/spe-client/pkg/spe"
	"golang.org/x/oauth2"
)

type mockProvider struct {
	mu        sync.Mutex
	token     string
	ok        bool
	calls     int
	resources []string
}

func (m *mockProvider) GetAccessToken(_ context.Context, resource string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.resources = append(m.resources, resource)
	return m.token, m.ok
}

func (m *mockProvider) set(token string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.ok = token, ok
}

func TestAuthTokenSource(t *testing.T) {
	provider := &mockProvider{token: "initial_access", ok: true}
	var received []string
	ts := newAuthTokenSource(context.Background(), provider, "https://contoso.sharepoint.com", func(tok *oauth2.Token) {
		received = append(received, tok.AccessToken)
	})

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "initial_access", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)

	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, []string{"initial_access"}, received, "unchanged token does not trigger the callback")

	provider.set("refreshed_access", true)
	tok, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed_access", tok.AccessToken)
	assert.Equal(t, []string{"initial_access", "refreshed_access"}, received)

	assert.Equal(t, 3, provider.calls)
	for _, r := range provider.resources {
		assert.Equal(t, "https://contoso.sharepoint.com", r)
	}
}

func TestAuthTokenSource_NoToken(t *testing.T) {
	provider := &mockProvider{}
	ts := newAuthTokenSource(context.Background(), provider, "", nil)

	tok, err := ts.Token()
	assert.Nil(t, tok)
	assert.ErrorIs(t, err, spe.ErrReauthRequired)
}
