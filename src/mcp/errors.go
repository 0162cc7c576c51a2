package mcp

import (
	"errors"
	"fmt"

	"github.com/intrusive-memory/app-store-connect-mcp-server/src/appstore"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/diagnostics"
)

// formatToolError renders a typed error as kind + message so the caller
// can tell an invalid argument from a backend rejection from a transport
// failure. There is no generic "something went wrong" path.
func formatToolError(err error) string {
	var apiErr *appstore.APIError
	switch {
	case errors.Is(err, diagnostics.ErrInvalidSelector), errors.Is(err, diagnostics.ErrMissingBuildRunID):
		return fmt.Sprintf("invalid_argument: %v", err)
	case errors.As(err, &apiErr):
		return fmt.Sprintf("backend_error (HTTP %d): %v", apiErr.StatusCode, apiErr)
	default:
		return fmt.Sprintf("transport_error: %v", err)
	}
}
