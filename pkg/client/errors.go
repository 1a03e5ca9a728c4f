package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is wrapped into the reason of outcomes that ran out of attempts.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during a backoff wait.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrMissingAPIKey is returned by New when no API key is configured.
	ErrMissingAPIKey = errors.New("api key is required")
)

// APIError describes a transport-level failure talking to the profile API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("profile api %s (status %d): %s: %v", e.Endpoint, e.StatusCode, e.Message, e.Err)
		}
		return fmt.Sprintf("profile api %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("profile api %s: %s: %v", e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("profile api %s: %s", e.Endpoint, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
