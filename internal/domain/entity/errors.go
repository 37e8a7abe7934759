package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrRateNotFound historical rate absent after the bounded walk-back.
	ErrRateNotFound = errors.New("rate not found")
	// ErrEmptyBuffer drain was called with nothing pending.
	ErrEmptyBuffer = errors.New("nothing pending")
	// ErrNotAdmin caller is not allowed to manage the catalog.
	ErrNotAdmin = errors.New("user is not admin")
)

// ExternalError a collaborator call (rates, model) failed.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// IsExternal reports whether err is a TransientExternalFailure.
func IsExternal(err error) bool {
	var ext *ExternalError
	return errors.As(err, &ext)
}
