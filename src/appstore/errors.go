package appstore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the App Store Connect API. It
// carries the backend's structured detail messages verbatim so the
// operator sees exactly what the API said.
type APIError struct {
	StatusCode int
	Details    []string
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("App Store Connect API error %d", e.StatusCode)
	}
	return fmt.Sprintf("App Store Connect API error %d: %s", e.StatusCode, strings.Join(e.Details, "; "))
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// errorEnvelope is the API's error response shape.
type errorEnvelope struct {
	Errors []struct {
		Status string `json:"status,omitempty"`
		Code   string `json:"code,omitempty"`
		Title  string `json:"title,omitempty"`
		Detail string `json:"detail"`
	} `json:"errors"`
}
