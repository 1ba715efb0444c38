//nolint:revive // exported
package expression

import (
	"errors"
	"fmt"
)

var (
	ErrNilEnv    = errors.New("cannot evaluate on nil Env")
	ErrEmptyPath = errors.New("empty path")
)

// ExpressionError represents a structured error from expression evaluation.
type ExpressionError struct {
	Expression string // The expression that failed
	Phase      string // "compile" or "run"
	Cause      error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression %q failed during %s: %v", e.Expression, e.Phase, e.Cause)
}

func (e *ExpressionError) Unwrap() error {
	return e.Cause
}

func NewCompileError(expr string, cause error) error {
	return &ExpressionError{Expression: expr, Phase: "compile", Cause: cause}
}

func NewRunError(expr string, cause error) error {
	return &ExpressionError{Expression: expr, Phase: "run", Cause: cause}
}

// InterpolationError represents an error during {{ }} interpolation.
type InterpolationError struct {
	Input  string // The original input string
	VarRef string // The variable reference that failed
	Cause  error
}

func (e *InterpolationError) Error() string {
	return fmt.Sprintf("interpolation failed for '%s': %v", e.VarRef, e.Cause)
}

func (e *InterpolationError) Unwrap() error {
	return e.Cause
}
