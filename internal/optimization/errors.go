package optimization

import "fmt"

// Error is an optimization error carrying operation context so failures deep
// in a heuristic or model can be traced back to the call that produced them.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewErrorf creates a new optimization error with a formatted message.
func NewErrorf(op, format string, args ...interface{}) *Error {
	return &Error{Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with operation context. If err is nil,
// WrapError returns nil.
func WrapError(err error, op string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err, Message: "operation failed"}
}

// InvalidParamError reports a configuration value rejected at construction.
// It always names the offending parameter.
type InvalidParamError struct {
	Param  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}
