package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreIO matches every storage failure returned by a store.
	ErrStoreIO = errors.New("store io failure")
	// ErrInvalidDimension means a vector does not have the store's dimension.
	ErrInvalidDimension = errors.New("invalid vector dimension")
	// ErrNotFound means no chunk exists with the requested id.
	ErrNotFound = errors.New("chunk not found")
)

// Error wraps a storage failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrStoreIO.
func (e *Error) Is(target error) bool { return target == ErrStoreIO }

func ioErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

func dimErr(got, want int) error {
	return fmt.Errorf("%w: got %d, want %d", ErrInvalidDimension, got, want)
}
