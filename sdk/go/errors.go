package mailpilot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by the SDK.
var (
	// ErrNoToken is returned when the client has no access token configured.
	ErrNoToken = errors.New("mailpilot: no access token configured")

	// ErrUnauthorized is returned when the server rejects the access token.
	ErrUnauthorized = errors.New("mailpilot: token is invalid or expired")
)

// APIError represents an error response from the Mail Pilot API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailpilot: API error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap lets errors.Is match ErrUnauthorized on 401 responses
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// apiErrorWrapper matches the Mail Pilot API error envelope.
type apiErrorWrapper struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseAPIError(statusCode int, body []byte) error {
	var wrapper apiErrorWrapper
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Code != "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       wrapper.Error.Code,
			Message:    wrapper.Error.Message,
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Code:       "unknown",
		Message:    string(body),
	}
}

// IsAPIError checks whether err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HasCode reports whether err is an APIError carrying code
func HasCode(err error, code string) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.Code == code
}
