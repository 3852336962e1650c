package search

import (
	"errors"
	"fmt"

	"dealhunter/session"
)

var (
	ErrValidation = errors.New("invalid search request")
	// ErrProvidersUnavailable means no provider could be consulted at all.
	ErrProvidersUnavailable = errors.New("search providers unavailable")
	ErrSessionNotFound      = session.ErrNotFound
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
