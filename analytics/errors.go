package analytics

import (
	"errors"
	"fmt"
)

// Expected, validated conditions. Controllers map these to client-visible
// HTTP statuses; everything else is a StorageError.
var (
	ErrArticleNotFound = errors.New("article not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidRange    = errors.New("invalid range")
)

// StorageError wraps an unexpected persistence failure. It is propagated
// unmodified to the caller; retry policy belongs to the HTTP boundary.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("analytics: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
