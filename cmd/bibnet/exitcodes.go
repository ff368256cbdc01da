package main

import (
	"errors"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/scholar"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no workspace, invalid sources.yml)
	ExitDataError   = 3 // Data error (malformed key or value)
	ExitUnsupported = 4 // The source does not support the operation
	ExitUnavailable = 5 // A remote backend could not be reached
	ExitNotFound    = 6 // Graph or paper not found

	// Semantic Scholar exit codes
	ExitS2AuthError = 7 // Missing or invalid S2 API key
	ExitS2APIError  = 8 // API error (rate limit, network)
)

// exitCodeFor classifies err.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, config.ErrMissingRequiredKey),
		errors.Is(err, config.ErrConditionFailed),
		errors.Is(err, datasource.ErrUnknownSourceType):
		return ExitConfigError
	case errors.Is(err, datasource.ErrInvalidKeySpecification):
		return ExitDataError
	case errors.Is(err, datasource.ErrUnsupportedOperation):
		return ExitUnsupported
	case errors.Is(err, datasource.ErrBackendUnavailable):
		return ExitUnavailable
	case errors.Is(err, datasource.ErrGraphNotFound), scholar.IsNotFound(err):
		return ExitNotFound
	case scholar.IsAuthError(err):
		return ExitS2AuthError
	case scholar.IsRateLimited(err), errors.Is(err, scholar.ErrNetworkError):
		return ExitS2APIError
	}
	return ExitError
}
