package expression

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type compileMode uint8

const (
	compileAny compileMode = iota
	compileBool
)

type programCacheKey struct {
	expression string
	mode       compileMode
}

// programCache memoizes compiled programs. Expressions repeat heavily across
// steps of the same flow so the hit rate is near total after the first run.
var programCache sync.Map // map[programCacheKey]*vm.Program

func compileProgram(expression string, mode compileMode) (*vm.Program, error) {
	key := programCacheKey{expression: expression, mode: mode}
	if cached, ok := programCache.Load(key); ok {
		return cached.(*vm.Program), nil
	}

	opts := []expr.Option{expr.AllowUndefinedVariables()}
	if mode == compileBool {
		opts = append(opts, expr.AsBool())
	}

	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, NewCompileError(expression, err)
	}

	actual, _ := programCache.LoadOrStore(key, program)
	return actual.(*vm.Program), nil
}

// Eval evaluates the expression against the Env and returns the raw result.
func Eval(ctx context.Context, env *Env, expression string) (any, error) {
	if env == nil {
		return nil, ErrNilEnv
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	program, err := compileProgram(expression, compileAny)
	if err != nil {
		return nil, err
	}

	output, err := expr.Run(program, env.Data())
	if err != nil {
		return nil, NewRunError(expression, err)
	}
	if env.tracker != nil {
		env.tracker.TrackRead(expression, output)
	}
	return output, nil
}

// EvalBool evaluates the expression and requires a boolean result.
func EvalBool(ctx context.Context, env *Env, expression string) (bool, error) {
	if env == nil {
		return false, ErrNilEnv
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	program, err := compileProgram(expression, compileBool)
	if err != nil {
		return false, err
	}

	output, err := expr.Run(program, env.Data())
	if err != nil {
		return false, NewRunError(expression, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, NewRunError(expression, fmt.Errorf("expected bool result, got %T", output))
	}
	if env.tracker != nil {
		env.tracker.TrackRead(expression, result)
	}
	return result, nil
}
