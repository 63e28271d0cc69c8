package llm

import (
	"context"
	"errors"
	"fmt"
)

// Error codes that are not HTTP statuses.
const (
	CodeTimeout       = "timeout"
	CodeCanceled      = "canceled"
	CodeEmptyResponse = "empty_response"
	CodeBlocked       = "blocked"
	CodeNoProvider    = "no_provider"
	CodeInvalidModel  = "invalid_model"
)

// ProviderError is returned for any failed provider call: transport errors,
// timeouts, non-2xx responses and output the provider itself flags as unusable.
type ProviderError struct {
	Provider string
	Code     string // CodeTimeout, an HTTP status such as "429", or empty
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	prefix := "provider error"
	if e.Provider != "" {
		prefix = fmt.Sprintf("provider error (%s)", e.Provider)
	}
	if e.Code != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsProviderError reports whether err is or wraps a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsTimeout reports whether err is a provider timeout.
func IsTimeout(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == CodeTimeout
}

// classify wraps err as a *ProviderError. Provider adapters may already have
// produced one with an HTTP status; context expiry always wins as a timeout.
func classify(provider string, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Code: CodeTimeout, Message: "call timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Provider: provider, Code: CodeCanceled, Message: "call canceled", Cause: err}
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Provider == "" {
			pe.Provider = provider
		}
		return pe
	}
	return &ProviderError{Provider: provider, Message: "call failed", Cause: err}
}
