package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the session token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the session token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrUnknownProvider indicates the provider is not supported
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrConfiguration indicates a deployment/setup problem (missing credentials or keys)
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidState indicates the OAuth state is unknown, expired or already consumed
	ErrInvalidState = errors.New("invalid oauth state: possible CSRF or expired session")

	// ErrProviderExchange indicates the provider token endpoint rejected the request or was unreachable
	ErrProviderExchange = errors.New("provider token exchange failed")

	// ErrPersistence indicates a storage write failed
	ErrPersistence = errors.New("persistence failed")

	// ErrNoRefreshToken indicates the connection has no refresh token to use
	ErrNoRefreshToken = errors.New("connection has no refresh token")

	// ErrRefreshInProgress indicates another instance holds the refresh lock and did not finish in time
	ErrRefreshInProgress = errors.New("token refresh already in progress")
)

// ConfigurationError reports settings that must be fixed before a feature can run.
// It is not recoverable at request time.
type ConfigurationError struct {
	// Missing lists the environment variables that are absent or invalid.
	Missing []string

	// Guidance tells the operator how to fix the deployment.
	Guidance string
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if len(e.Missing) > 0 {
		msg += ": missing or invalid " + strings.Join(e.Missing, ", ")
	}
	if e.Guidance != "" {
		msg += " (" + e.Guidance + ")"
	}
	return msg
}

// Is makes errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ProviderExchangeError wraps a failed call to a provider token endpoint.
// The cause must never contain token material.
type ProviderExchangeError struct {
	Provider ProviderType
	Err      error
}

func (e *ProviderExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed: %v", e.Provider, e.Err)
}

func (e *ProviderExchangeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrProviderExchange) match.
func (e *ProviderExchangeError) Is(target error) bool {
	return target == ErrProviderExchange
}

// PersistenceError wraps a store failure.
func PersistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
