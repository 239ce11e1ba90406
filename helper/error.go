package helper

import "fmt"

// Error wraps an error with the operation that produced it.
// The original error stays reachable through errors.Is and errors.As.
type Error struct {
	Original error
	Trace    string
}

// NewError wraps original with a trace describing the failed operation.
func NewError(trace string, original error) error {
	return &Error{
		Original: original,
		Trace:    trace,
	}
}

func (e *Error) Error() string {
	if e.Original == nil {
		return e.Trace
	}
	return fmt.Sprintf("%s: %v", e.Trace, e.Original)
}

func (e *Error) Unwrap() error {
	return e.Original
}
