package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the operation referenced a restriction, appeal, or
// verification that does not exist or does not belong to the claimed user.
// No side effects have occurred.
var ErrNotFound = errors.New("not found")

// ValidationError is returned for malformed or unknown input, before any
// persistence happens.
type ValidationError struct {
	Field   string
	Problem string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Problem)
}

func validationErr(field, problem string) error {
	return &ValidationError{Field: field, Problem: problem}
}

// StorageError wraps a backing-store failure on the primary path of an
// operation. The triggering operation has failed atomically; callers may
// retry the whole request.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	// taxonomy errors pass through unchanged
	var ve *ValidationError
	if errors.Is(err, ErrNotFound) || errors.As(err, &ve) {
		return err
	}
	return &StorageError{Err: err}
}
