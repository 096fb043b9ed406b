package baas

import (
	"errors"
	"fmt"
	"net/http"
)

// Typed errors for backend operations.
// Callers use errors.Is() against these instead of inspecting status codes or messages.
var (
	// ErrBadRequest indicates the backend rejected the query, e.g. a malformed filter (HTTP 400).
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized indicates the auth token was missing, invalid or expired (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the collection rules denied the request (HTTP 403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested record does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates the backend could not be reached or failed internally (network, 5xx).
	ErrUnavailable = errors.New("backend unavailable")

	// ErrReadOnly is returned by backends that only serve reads.
	ErrReadOnly = errors.New("backend is read-only")
)

// APIError is the error body returned by the backend REST API.
type APIError struct {
	Data       map[string]any `json:"data,omitempty"`
	Message    string         `json:"message"`
	StatusCode int            `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Message)
}

// wrapAPIError maps a backend status code onto the typed errors above, keeping the
// operation name and backend message for logs.
func wrapAPIError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusBadRequest:
			return fmt.Errorf("%s: %w: %s", operation, ErrBadRequest, apiErr.Message)
		case apiErr.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %s", operation, ErrUnauthorized, apiErr.Message)
		case apiErr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%s: %w: %s", operation, ErrForbidden, apiErr.Message)
		case apiErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %s", operation, ErrNotFound, apiErr.Message)
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w: %s", operation, ErrUnavailable, apiErr.Message)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError returns true if the error is an authentication/authorization error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}
