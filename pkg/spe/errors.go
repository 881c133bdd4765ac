package spe

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors. Graph failures are returned as *HTTPError values that
// unwrap to one of these when the failure kind is recognised.
var (
	ErrReauthRequired        = errors.New("re-authentication required")
	ErrAccessDenied          = errors.New("access denied")
	ErrRetryLater            = errors.New("retry later")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrResourceNotFound      = errors.New("resource not found")
	ErrConflict              = errors.New("conflict")
	ErrQuotaExceeded         = errors.New("quota exceeded")
	ErrAuthorizationPending  = errors.New("authorization pending")
	ErrAuthorizationDeclined = errors.New("authorization declined")
	ErrTokenExpired          = errors.New("token expired")
	ErrSlowDown              = errors.New("polling too fast")
	ErrInteractionRequired   = errors.New("interaction required")
	ErrDecodingFailed        = errors.New("decoding failed")
	ErrOperationFailed       = errors.New("operation failed")
	ErrValidation            = errors.New("validation failed")
)

// HTTPError describes a non-2xx response from Graph. Body holds the raw
// response text so that callers can surface it for diagnostics.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Code       string
	Message    string

	kind error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("graph request failed: %s: %s", e.Status, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("graph request failed: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("graph request failed: %s", e.Status)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *HTTPError) Unwrap() error {
	return e.kind
}

// newHTTPError builds an HTTPError from a failed response body.
func newHTTPError(res *http.Response, body string) *HTTPError {
	httpErr := &HTTPError{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Body:       body,
	}

	var graphError struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &graphError); err == nil {
		httpErr.Code = graphError.Error.Code
		httpErr.Message = graphError.Error.Message
	}

	httpErr.kind = classifyGraphError(httpErr.Code, res.StatusCode)
	return httpErr
}

// classifyGraphError maps a Graph error code, falling back to the HTTP
// status, onto a sentinel. Unknown failures map to nil.
func classifyGraphError(code string, status int) error {
	switch strings.ToLower(code) {
	case "accessdenied", "forbidden":
		return ErrAccessDenied
	case "itemnotfound", "notfound":
		return ErrResourceNotFound
	case "namealreadyexists":
		return ErrConflict
	case "invalidrange", "invalidrequest", "badrequest", "malwaredetected",
		"notallowed", "notsupported", "resourcemodified":
		return ErrInvalidRequest
	case "quotalimitreached", "insufficientquota":
		return ErrQuotaExceeded
	case "unauthenticated", "invalidauthenticationtoken":
		return ErrReauthRequired
	case "activitylimitreached", "toomanyrequests", "servicenotavailable":
		return ErrRetryLater
	}

	switch status {
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusNotAcceptable,
		http.StatusLengthRequired, http.StatusPreconditionFailed,
		http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType,
		http.StatusRequestedRangeNotSatisfiable, http.StatusUnprocessableEntity:
		return ErrInvalidRequest
	case http.StatusUnauthorized:
		return ErrReauthRequired
	case http.StatusForbidden:
		return ErrAccessDenied
	case http.StatusGone, http.StatusNotFound:
		return ErrResourceNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusInsufficientStorage:
		return ErrQuotaExceeded
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 509:
		return ErrRetryLater
	}
	return nil
}

// validateRequired takes alternating name/value pairs and returns an
// ErrValidation error naming the first blank value.
func validateRequired(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, pairs[i])
		}
	}
	return nil
}
