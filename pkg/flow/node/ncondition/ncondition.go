// Package ncondition routes a run down its true or false branch by
// evaluating a single field/operator/value comparison against the
// variable map.
package ncondition

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/JimGeek/Super/pkg/expression"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mcondition"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

type NodeCondition struct {
	FlowNodeID idwrap.IDWrap
	Name       string
	Config     mnode.NodeCondition
}

func New(id idwrap.IDWrap, name string, config mnode.NodeCondition) *NodeCondition {
	return &NodeCondition{
		FlowNodeID: id,
		Name:       name,
		Config:     config,
	}
}

func (n NodeCondition) GetID() idwrap.IDWrap {
	return n.FlowNodeID
}

func (n NodeCondition) GetName() string {
	return n.Name
}

func (n NodeCondition) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	varSnapshot := node.DeepCopyVarMap(req)
	env := expression.NewEnv(varSnapshot).WithTracking(req.VariableTracker)

	result, err := Evaluate(ctx, env, n.Config.Condition)
	if err != nil {
		if _, missing := err.(*missingFieldError); missing {
			return node.FlowNodeResult{Err: &node.MissingVariableError{
				NodeName: n.Name,
				Path:     n.Config.Condition.Field,
			}}
		}
		return node.FlowNodeResult{Err: err}
	}

	output := map[string]any{
		"result":   result,
		"field":    n.Config.Condition.Field,
		"operator": string(n.Config.Condition.Operator),
	}
	if err := node.WriteNodeVarRawWithTracking(req, n.Name, output, req.VariableTracker); err != nil {
		return node.FlowNodeResult{Err: err}
	}

	handle := mflow.HandleFalse
	if result {
		handle = mflow.HandleTrue
	}
	nextID := mflow.GetNextNodeID(req.EdgeSourceMap, n.FlowNodeID, handle)
	return node.FlowNodeResult{
		NextNodeID: nextID,
		Err:        nil,
	}
}

func (n NodeCondition) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- n.RunSync(ctx, req)
}

type missingFieldError struct {
	field string
}

func (e *missingFieldError) Error() string {
	return fmt.Sprintf("field %q not found", e.field)
}

// Evaluate resolves the condition's field from the env and applies the
// operator. The exists operator tolerates a missing field; every other
// operator treats one as an error.
func Evaluate(ctx context.Context, env *expression.Env, cond mcondition.Condition) (bool, error) {
	fieldValue, found := env.Get(cond.Field)

	if cond.Operator == mcondition.OperatorExists {
		return found, nil
	}
	if !found {
		return false, &missingFieldError{field: cond.Field}
	}

	compareValue, err := expression.ResolveValue(ctx, env, cond.Value)
	if err != nil {
		return false, err
	}

	switch cond.Operator {
	case mcondition.OperatorEquals:
		return looseEquals(fieldValue, compareValue), nil
	case mcondition.OperatorNotEquals:
		return !looseEquals(fieldValue, compareValue), nil
	case mcondition.OperatorGreaterThan:
		return compareNumeric(cond, fieldValue, compareValue, func(a, b float64) bool { return a > b })
	case mcondition.OperatorLessThan:
		return compareNumeric(cond, fieldValue, compareValue, func(a, b float64) bool { return a < b })
	case mcondition.OperatorContains:
		return contains(fieldValue, compareValue)
	default:
		return false, fmt.Errorf("unsupported operator %q", cond.Operator)
	}
}

// looseEquals compares numerically when both sides coerce to numbers, so
// "100" equals 100. Everything else falls back to deep equality.
func looseEquals(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func compareNumeric(cond mcondition.Condition, field, compare any, cmp func(a, b float64) bool) (bool, error) {
	fa, aok := toFloat(field)
	fb, bok := toFloat(compare)
	if !aok || !bok {
		return false, fmt.Errorf("operator %s needs numeric operands for field %q, got %T and %T",
			cond.Operator, cond.Field, field, compare)
	}
	return cmp(fa, fb), nil
}

func contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		if !ok {
			n = fmt.Sprintf("%v", needle)
		}
		return strings.Contains(h, n), nil
	case []any:
		for _, item := range h {
			if looseEquals(item, needle) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		key, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("contains on a map needs a string key, got %T", needle)
		}
		_, present := h[key]
		return present, nil
	default:
		return false, fmt.Errorf("contains not supported on %T", haystack)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
