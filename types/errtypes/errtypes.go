// Package errtypes contains the error kinds shared across lanelm packages
package errtypes

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrShapeMismatch        = errors.New("shape mismatch")
	ErrEmptySeed            = errors.New("empty seed")
)

// ShapeError reports a tensor whose shape disagrees with what the model
// expects. It matches ErrShapeMismatch.
type ShapeError struct {
	What string
	Want []int
	Got  []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: want %v, got %v", ErrShapeMismatch, e.What, e.Want, e.Got)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// IsUserError reports whether err is one of the error kinds caused by
// bad caller input rather than an internal failure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrEmptySeed)
}
