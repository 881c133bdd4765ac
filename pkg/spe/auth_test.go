package spe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIdentity(t *testing.T, handler http.HandlerFunc) (*IdentityClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewIdentityClient("client-1", "tenant-1", WithAuthority(server.URL)), server
}

func TestScope(t *testing.T) {
	assert.Equal(t, "https://graph.microsoft.com/.default", Scope(GraphResource))
	assert.Equal(t, "https://contoso.sharepoint.com/.default", Scope("https://contoso.sharepoint.com/"))
	assert.Equal(t, []string{"https://graph.microsoft.com/.default", "openid", "profile", "offline_access"}, Scopes(GraphResource))
}

func TestInitiateDeviceCodeFlow(t *testing.T) {
	ic, _ := newTestIdentity(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenant-1/oauth2/v2.0/devicecode", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Contains(t, r.PostForm.Get("scope"), "offline_access")
		fmt.Fprint(w, `{"user_code":"ABC","device_code":"dev","verification_uri":"https://microsoft.com/devicelogin","expires_in":900,"interval":5,"message":"enter ABC"}`)
	})

	resp, err := ic.InitiateDeviceCodeFlow(context.Background(), Scopes(GraphResource))
	require.NoError(t, err)
	assert.Equal(t, "ABC", resp.UserCode)
	assert.Equal(t, 5, resp.Interval)
}

func TestVerifyDeviceCodeErrors(t *testing.T) {
	tests := []struct {
		code     string
		expected error
	}{
		{"authorization_pending", ErrAuthorizationPending},
		{"slow_down", ErrSlowDown},
		{"authorization_declined", ErrAuthorizationDeclined},
		{"expired_token", ErrTokenExpired},
		{"invalid_grant", ErrInteractionRequired},
		{"invalid_client", ErrInvalidRequest},
		{"something_new", ErrOperationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ic, _ := newTestIdentity(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, `{"error":%q,"error_description":"desc"}`, tt.code)
			})

			_, err := ic.VerifyDeviceCode(context.Background(), "dev")
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestVerifyDeviceCodeSuccess(t *testing.T) {
	ic, _ := newTestIdentity(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", r.PostForm.Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600,"id_token":"idt"}`)
	})

	tok, err := ic.VerifyDeviceCode(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	assert.Equal(t, "idt", IDToken(tok))
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
}

func TestRedeemRefreshToken(t *testing.T) {
	ic, _ := newTestIdentity(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
		assert.True(t, strings.HasPrefix(r.PostForm.Get("scope"), "https://contoso.sharepoint.com/.default"))
		fmt.Fprint(w, `{"access_token":"sp-at","token_type":"Bearer","expires_in":"3600"}`)
	})

	tok, err := ic.RedeemRefreshToken(context.Background(), "rt", Scopes("https://contoso.sharepoint.com"))
	require.NoError(t, err)
	assert.Equal(t, "sp-at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken, "the old refresh token is kept when none is returned")

	_, err = ic.RedeemRefreshToken(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrInteractionRequired)
}

func TestAuthorizationCodeFlow(t *testing.T) {
	ic, _ := newTestIdentity(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenant-1/oauth2/v2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.NotEmpty(t, r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","token_type":"Bearer","refresh_token":"rt","expires_in":3600}`)
	})

	cfg := ic.OAuth2Config("http://localhost:5000/callback", Scopes(GraphResource))
	authURL, verifier, state, err := StartAuthentication(cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, verifier)
	assert.NotEmpty(t, state)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "S256", parsed.Query().Get("code_challenge_method"))
	assert.Equal(t, state, parsed.Query().Get("state"))
	assert.True(t, strings.HasSuffix(parsed.Path, "/tenant-1/oauth2/v2.0/authorize"))

	tok, err := ic.CompleteAuthentication(context.Background(), cfg, "the-code", verifier)
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.False(t, tok.Expiry.IsZero())
}

func TestLogoutURL(t *testing.T) {
	ic := NewIdentityClient("client-1", "")
	assert.Equal(t, "https://login.microsoftonline.com/organizations/oauth2/v2.0/logout", ic.LogoutURL(""))
	assert.Contains(t, ic.LogoutURL("http://localhost:5000"), "post_logout_redirect_uri=http%3A%2F%2Flocalhost%3A5000")
}
