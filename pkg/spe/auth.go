package spe

// auth.go talks to the Microsoft identity platform: device code flow,
// authorization code + PKCE, refresh token redemption and sign-out.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	cv "github.com/nirasan/go-oauth-pkce-code-verifier"
	"github.com/tonimelisma/spe-client/internal/logger"
	"golang.org/x/oauth2"
)

// baseScopes are requested alongside every resource scope so that the
// identity platform returns a refresh token and an id_token.
var baseScopes = []string{"openid", "profile", "offline_access"}

// Scope returns the ".default" scope of a resource URI.
func Scope(resource string) string {
	return strings.TrimSuffix(resource, "/") + "/.default"
}

// Scopes returns the full scope list for a resource.
func Scopes(resource string) []string {
	return append([]string{Scope(resource)}, baseScopes...)
}

// DeviceCodeResponse is returned when a device code flow starts.
type DeviceCodeResponse struct {
	UserCode        string `json:"user_code"`
	DeviceCode      string `json:"device_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
	Message         string `json:"message"`
}

// IdentityClient is an unauthenticated client of one tenant's identity
// platform endpoints.
type IdentityClient struct {
	clientID   string
	tenantID   string
	authority  string
	httpClient *http.Client
	logger     logger.Logger
}

// IdentityOption customises an IdentityClient.
type IdentityOption func(*IdentityClient)

// WithAuthority overrides the identity platform root, e.g. for tests.
func WithAuthority(authority string) IdentityOption {
	return func(ic *IdentityClient) {
		if authority != "" {
			ic.authority = strings.TrimSuffix(authority, "/") + "/"
		}
	}
}

// WithIdentityHTTPClient sets the HTTP client used for token requests.
func WithIdentityHTTPClient(hc *http.Client) IdentityOption {
	return func(ic *IdentityClient) {
		if hc != nil {
			ic.httpClient = hc
		}
	}
}

// WithIdentityLogger sets the logger.
func WithIdentityLogger(l logger.Logger) IdentityOption {
	return func(ic *IdentityClient) {
		ic.logger = logger.OrNoop(l)
	}
}

// NewIdentityClient returns a client for the given app registration.
func NewIdentityClient(clientID, tenantID string, opts ...IdentityOption) *IdentityClient {
	ic := &IdentityClient{
		clientID:   clientID,
		tenantID:   tenantID,
		authority:  DefaultAuthority,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(ic)
	}
	if ic.tenantID == "" {
		ic.tenantID = "organizations"
	}
	return ic
}

// ClientID returns the app registration id.
func (ic *IdentityClient) ClientID() string { return ic.clientID }

// TenantID returns the tenant the client signs in to.
func (ic *IdentityClient) TenantID() string { return ic.tenantID }

func (ic *IdentityClient) endpoint(name string) string {
	return ic.authority + url.PathEscape(ic.tenantID) + "/oauth2/v2.0/" + name
}

// OAuth2Config returns an oauth2.Config for the authorization code flow.
func (ic *IdentityClient) OAuth2Config(redirectURL string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    ic.clientID,
		RedirectURL: redirectURL,
		Scopes:      scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   ic.endpoint("authorize"),
			TokenURL:  ic.endpoint("token"),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// LogoutURL returns the front-channel sign-out URL.
func (ic *IdentityClient) LogoutURL(postLogoutRedirect string) string {
	u := ic.endpoint("logout")
	if postLogoutRedirect != "" {
		u += "?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirect)
	}
	return u
}

// InitiateDeviceCodeFlow starts a device code flow for scopes. The caller
// shows Message to the user and polls VerifyDeviceCode.
func (ic *IdentityClient) InitiateDeviceCodeFlow(ctx context.Context, scopes []string) (*DeviceCodeResponse, error) {
	data := url.Values{}
	data.Set("client_id", ic.clientID)
	data.Set("scope", strings.Join(scopes, " "))

	body, err := ic.postForm(ctx, ic.endpoint("devicecode"), data)
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}

	var resp DeviceCodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding device code response: %w", ErrDecodingFailed, err)
	}
	return &resp, nil
}

// VerifyDeviceCode polls the token endpoint once. While the user has not
// finished signing in it returns ErrAuthorizationPending.
func (ic *IdentityClient) VerifyDeviceCode(ctx context.Context, deviceCode string) (*oauth2.Token, error) {
	data := url.Values{}
	data.Set("grant_type", "urn:ietf:params:oauth:grant-type:device_code")
	data.Set("client_id", ic.clientID)
	data.Set("device_code", deviceCode)

	body, err := ic.postForm(ctx, ic.endpoint("token"), data)
	if err != nil {
		return nil, err
	}
	return tokenFromBody(body)
}

// RedeemRefreshToken exchanges a refresh token for an access token scoped to
// scopes. x/oauth2's own refresh path sends no scope, which the identity
// platform needs to pick the resource, so the request is built here.
func (ic *IdentityClient) RedeemRefreshToken(ctx context.Context, refreshToken string, scopes []string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", ErrInteractionRequired)
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", ic.clientID)
	data.Set("refresh_token", refreshToken)
	data.Set("scope", strings.Join(scopes, " "))

	body, err := ic.postForm(ctx, ic.endpoint("token"), data)
	if err != nil {
		return nil, fmt.Errorf("redeeming refresh token: %w", err)
	}
	tok, err := tokenFromBody(body)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// StartAuthentication builds the authorization URL for a PKCE flow. The
// verifier and state must be handed back to CompleteAuthentication.
func StartAuthentication(cfg *oauth2.Config) (authURL, verifier, state string, err error) {
	codeVerifier, err := cv.CreateCodeVerifier()
	if err != nil {
		return "", "", "", fmt.Errorf("could not create PKCE code verifier: %w", err)
	}
	verifier = codeVerifier.String()
	state = uuid.NewString()

	authURL = cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeVerifier.CodeChallengeS256()),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	return authURL, verifier, state, nil
}

// CompleteAuthentication exchanges an authorization code for a token.
func (ic *IdentityClient) CompleteAuthentication(ctx context.Context, cfg *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, ic.httpClient)
	tok, err := cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %s", classifyOAuthError(retrieveErr.ErrorCode), retrieveErr.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: exchanging authorization code: %w", ErrOperationFailed, err)
	}

	if tok.Expiry.IsZero() {
		if expiresIn, ok := tok.Extra("expires_in").(float64); ok {
			tok.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
		}
	}
	return tok, nil
}

// IDToken returns the raw id_token carried by tok, if any.
func IDToken(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	s, _ := tok.Extra("id_token").(string)
	return s
}

// postForm posts a form to an identity endpoint and maps OAuth error
// responses onto sentinels.
func (ic *IdentityClient) postForm(ctx context.Context, endpoint string, data url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request for %s failed: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	ic.logger.Debug("identity request", "url", endpoint, "grant_type", data.Get("grant_type"))
	res, err := ic.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error calling %s: %w", endpoint, err)
	}
	defer closeBodySafely(res.Body, ic.logger, "identity response")

	body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading identity response: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		var oauthError struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if jsonErr := json.Unmarshal(body, &oauthError); jsonErr == nil && oauthError.Error != "" {
			return nil, fmt.Errorf("%w: %s", classifyOAuthError(oauthError.Error), oauthError.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: HTTP error %s from %s: %s", ErrOperationFailed, res.Status, endpoint, string(body))
	}
	return body, nil
}

// classifyOAuthError maps an OAuth "error" value onto a sentinel.
func classifyOAuthError(code string) error {
	switch code {
	case "authorization_pending":
		return ErrAuthorizationPending
	case "slow_down":
		return ErrSlowDown
	case "authorization_declined", "access_denied":
		return ErrAuthorizationDeclined
	case "expired_token":
		return ErrTokenExpired
	case "interaction_required", "invalid_grant", "consent_required", "login_required":
		return ErrInteractionRequired
	case "invalid_request", "invalid_client", "invalid_scope", "unsupported_grant_type":
		return ErrInvalidRequest
	case "temporarily_unavailable", "server_error":
		return ErrRetryLater
	default:
		return ErrOperationFailed
	}
}

// tokenFromBody decodes a token endpoint response. expires_in is turned into
// an absolute Expiry; id_token and scope are kept as extras.
func tokenFromBody(body []byte) (*oauth2.Token, error) {
	var raw struct {
		AccessToken  string      `json:"access_token"`
		TokenType    string      `json:"token_type"`
		RefreshToken string      `json:"refresh_token"`
		ExpiresIn    json.Number `json:"expires_in"`
		IDToken      string      `json:"id_token"`
		Scope        string      `json:"scope"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing token response: %w", ErrDecodingFailed, err)
	}
	if raw.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response carried no access token", ErrOperationFailed)
	}

	tok := &oauth2.Token{
		AccessToken:  raw.AccessToken,
		TokenType:    raw.TokenType,
		RefreshToken: raw.RefreshToken,
	}
	if secs, err := raw.ExpiresIn.Int64(); err == nil && secs > 0 {
		tok.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return tok.WithExtra(map[string]interface{}{
		"id_token": raw.IDToken,
		"scope":    raw.Scope,
	}), nil
}
