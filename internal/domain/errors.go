package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrReferential = errors.New("referenced player or match does not exist")
	ErrTransient   = errors.New("transient failure")
	ErrNotFound    = errors.New("not found")
	ErrRunFinished = errors.New("run already finished")
	// ErrUnauthorized means upstream refused the API key; no request can succeed.
	ErrUnauthorized = errors.New("upstream rejected credentials")
)

// ValidationError matches ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
