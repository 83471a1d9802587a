package diffing

import (
	"errors"
	"fmt"
)

// ErrParamsUnstable is carried by the DIFFING_ERROR dispatched when the view
// parameters kept changing for more attempts than WithMaxStaleRetries allows.
var ErrParamsUnstable = errors.New("view parameters changed on every attempt")

// AssertionError is the panic value for a violated precondition. These are
// programming errors in the caller, never user-recoverable failures.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string {
	return "diffing: assertion failed: " + e.Msg
}

// must panics with an *AssertionError when cond is false.
func must(cond bool, format string, args ...any) {
	if !cond {
		panic(&AssertionError{Msg: fmt.Sprintf(format, args...)})
	}
}
