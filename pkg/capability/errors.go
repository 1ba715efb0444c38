package capability

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a capability failure for retry purposes.
type ErrorKind uint8

const (
	// ErrorKindTimeout means the provider did not answer in time. Retryable.
	ErrorKindTimeout ErrorKind = iota
	// ErrorKindTransient means a temporary provider fault. Retryable.
	ErrorKindTransient
	// ErrorKindRejected means the provider refused the request outright.
	// Retrying would produce the same answer.
	ErrorKindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindTransient:
		return "transient"
	case ErrorKindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is the failure type every capability implementation returns so the
// engine can decide between retrying and failing the step.
type Error struct {
	Kind       ErrorKind
	Capability string
	Ref        string
	Cause      error
}

func (e *Error) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s capability %s (ref %s): %v", e.Capability, e.Kind, e.Ref, e.Cause)
	}
	return fmt.Sprintf("%s capability %s: %v", e.Capability, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewTimeoutError(capability string, cause error) *Error {
	return &Error{Kind: ErrorKindTimeout, Capability: capability, Cause: cause}
}

func NewTransientError(capability string, cause error) *Error {
	return &Error{Kind: ErrorKindTransient, Capability: capability, Cause: cause}
}

func NewRejectedError(capability string, cause error) *Error {
	return &Error{Kind: ErrorKindRejected, Capability: capability, Cause: cause}
}

// IsRetryable reports whether a failed call may be attempted again.
// Unclassified errors are treated as non-retryable.
func IsRetryable(err error) bool {
	var capErr *Error
	if errors.As(err, &capErr) {
		return capErr.Kind == ErrorKindTimeout || capErr.Kind == ErrorKindTransient
	}
	return false
}
