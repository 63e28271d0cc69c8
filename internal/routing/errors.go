package routing

import (
	"errors"
	"fmt"
)

// ErrModelNotFound is returned by admin writes that reference an unknown model.
var ErrModelNotFound = errors.New("model not found")

// ValidationError reports an invalid routing or model write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// CatalogError wraps a failure reading the model catalog during resolution.
type CatalogError struct {
	Message string
	Cause   error
}

func (e *CatalogError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog error: %s", e.Message)
}

func (e *CatalogError) Unwrap() error {
	return e.Cause
}
