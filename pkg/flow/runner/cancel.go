//nolint:revive // exported
package runner

import (
	"context"
	"errors"
)

// ErrFlowCanceledByThrow marks an intentional cancellation raised from inside
// a node, as opposed to the caller's context being cancelled.
var ErrFlowCanceledByThrow = errors.New("flow canceled by throw")

// IsCancellationError returns true if the error represents a cancellation
// rather than a failure.
func IsCancellationError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrFlowCanceledByThrow) || errors.Is(err, context.Canceled)
}
