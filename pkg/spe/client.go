// Package spe is a small Microsoft Graph client for SharePoint Embedded:
// file storage containers, the drive items inside them, Microsoft Search,
// and the identity platform flows used to obtain tokens for all of it.
package spe

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

	"github.com/tonimelisma/spe-client/internal/logger"
	"golang.org/x/oauth2"
)

// Recorder receives one entry per Graph request. The dev diagnostics ring
// implements it.
type Recorder interface {
	Record(method, url string, status int, duration time.Duration, err error)
}

// Client issues Graph requests with the bearer token supplied by its
// TokenSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	logger     logger.Logger
	recorder   Recorder
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at a different Graph root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/") + "/"
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = logger.OrNoop(l)
	}
}

// WithRecorder registers a diagnostics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// NewClient creates a Graph client whose requests are authorised by ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultGraphURL,
		timeout: DefaultTimeout,
		logger:  logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = oauth2.NewClient(ctx, ts)
	c.httpClient.Timeout = c.timeout
	return c
}

// NewClientWithToken creates a client that sends a fixed bearer token.
func NewClientWithToken(ctx context.Context, accessToken string, opts ...Option) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return NewClient(ctx, ts, opts...)
}

// BaseURL returns the Graph root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetMe retrieves the profile of the signed-in user.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var user User
	err := c.makeAPICallAndDecode(ctx, http.MethodGet, c.baseURL+"me", "", nil, &user, "user profile")
	return user, err
}

// apiCall performs one request. Any status >= 400 is turned into an
// *HTTPError; the response body is closed in that case.
func (c *Client) apiCall(ctx context.Context, method, apiURL, contentType string, body io.Reader) (*http.Response, error) {
	if c.httpClient == nil {
		return nil, errors.New("HTTP client is nil, please provide a valid HTTP client")
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request failed: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("graph request", "method", method, "url", apiURL)
	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		err = classifyTransportError(err)
		c.record(method, apiURL, 0, time.Since(start), err)
		return nil, err
	}

	if res.StatusCode >= http.StatusBadRequest {
		defer closeBodySafely(res.Body, c.logger, "error response")
		httpErr := newHTTPError(res, readErrorBody(res.Body))
		c.record(method, apiURL, res.StatusCode, time.Since(start), httpErr)
		c.logger.Debug("graph request failed", "status", res.StatusCode, "code", httpErr.Code)
		return nil, httpErr
	}

	c.record(method, apiURL, res.StatusCode, time.Since(start), nil)
	return res, nil
}

func (c *Client) record(method, apiURL string, status int, d time.Duration, err error) {
	if c.recorder != nil {
		c.recorder.Record(method, apiURL, status, d, err)
	}
}

// classifyTransportError separates token refresh failures from plain
// network errors.
func classifyTransportError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case "invalid_request", "invalid_client", "invalid_grant",
			"unauthorized_client", "unsupported_grant_type",
			"invalid_scope", "access_denied", "interaction_required":
			return fmt.Errorf("%w: %v", ErrReauthRequired, err)
		case "server_error", "temporarily_unavailable":
			return fmt.Errorf("%w: %v", ErrRetryLater, err)
		default:
			return fmt.Errorf("other oauth2 error: %w", err)
		}
	}
	return fmt.Errorf("network error: %w", err)
}

// makeAPICallAndDecode performs a request and decodes the JSON response into dest.
func (c *Client) makeAPICallAndDecode(ctx context.Context, method, apiURL, contentType string, body io.Reader, dest interface{}, operation string) error {
	res, err := c.apiCall(ctx, method, apiURL, contentType, body)
	if err != nil {
		return err
	}
	defer closeBodySafely(res.Body, c.logger, operation)

	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decoding %s response: %w", ErrDecodingFailed, operation, err)
	}
	return nil
}

// collectAllPages follows @odata.nextLink until the listing is exhausted.
func (c *Client) collectAllPages(ctx context.Context, initialURL string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	next := initialURL

	for next != "" {
		var page struct {
			Value    []json.RawMessage `json:"value"`
			NextLink string            `json:"@odata.nextLink"`
		}
		if err := c.makeAPICallAndDecode(ctx, http.MethodGet, next, "", nil, &page, "page"); err != nil {
			return nil, err
		}
		all = append(all, page.Value...)
		next = page.NextLink
	}
	return all, nil
}

// containerURL builds storage/fileStorage/containers/{id}/suffix.
func (c *Client) containerURL(containerID, suffix string) string {
	u := c.baseURL + "storage/fileStorage/containers"
	if containerID != "" {
		u += "/" + url.PathEscape(containerID)
	}
	if suffix != "" {
		u += "/" + strings.TrimPrefix(suffix, "/")
	}
	return u
}

// driveItemURL builds drives/{driveID}/items/{itemID}/suffix.
func (c *Client) driveItemURL(driveID, itemID, suffix string) string {
	u := c.baseURL + "drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID)
	if suffix != "" {
		u += "/" + strings.TrimPrefix(suffix, "/")
	}
	return u
}

// closeBodySafely closes a response body and logs a failure.
func closeBodySafely(body io.Closer, l logger.Logger, operation string) {
	if err := body.Close(); err != nil {
		l.Warnf("Failed to close %s body: %v", operation, err)
	}
}

// readErrorBody reads an error body, capped so a misbehaving server cannot
// blow up memory.
func readErrorBody(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	return string(data)
}
