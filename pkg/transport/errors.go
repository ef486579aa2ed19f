package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for input outside the operation contract,
	// such as a nil item or a nil function.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSerialFetchFailure is the failure recorded when the serial chain
	// itself breaks. No outcome is produced for the steps after it.
	ErrSerialFetchFailure = errors.New("serial fetch failure")
)

// PanicError reports a panic raised by an operation under the parallel
// strategy.
type PanicError struct {
	Index int
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation %d panicked: %v", e.Index, e.Value)
}
