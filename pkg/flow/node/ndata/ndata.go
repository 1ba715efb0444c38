// Package ndata manipulates the run's variable map: setting variables,
// transforming values with expressions, and filtering or aggregating lists.
package ndata

import (
	"context"
	"fmt"

	"github.com/JimGeek/Super/pkg/expression"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

type NodeData struct {
	FlowNodeID idwrap.IDWrap
	Name       string
	Config     mnode.NodeData
}

func New(id idwrap.IDWrap, name string, config mnode.NodeData) *NodeData {
	return &NodeData{
		FlowNodeID: id,
		Name:       name,
		Config:     config,
	}
}

func (n NodeData) GetID() idwrap.IDWrap {
	return n.FlowNodeID
}

func (n NodeData) GetName() string {
	return n.Name
}

func (n NodeData) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	varSnapshot := node.DeepCopyVarMap(req)
	env := expression.NewEnv(varSnapshot).WithTracking(req.VariableTracker)

	value, err := n.compute(ctx, env)
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}

	if err := node.WriteNodeVarRawWithTracking(req, n.Config.Key, value, req.VariableTracker); err != nil {
		return node.FlowNodeResult{Err: err}
	}
	output := map[string]any{
		"key":   n.Config.Key,
		"value": value,
		"mode":  n.Config.Mode,
	}
	if err := node.WriteNodeVarRaw(req, n.Name, output); err != nil {
		return node.FlowNodeResult{Err: err}
	}

	nextID := mflow.GetNextNodeID(req.EdgeSourceMap, n.FlowNodeID, mflow.HandleUnspecified)
	return node.FlowNodeResult{
		NextNodeID: nextID,
		Err:        nil,
	}
}

func (n NodeData) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- n.RunSync(ctx, req)
}

func (n NodeData) compute(ctx context.Context, env *expression.Env) (any, error) {
	cfg := n.Config
	switch cfg.Mode {
	case mnode.DataModeConstant:
		return cfg.Value, nil
	case mnode.DataModeVariable:
		value, ok := env.Get(cfg.Source)
		if !ok {
			return nil, &node.MissingVariableError{NodeName: n.Name, Path: cfg.Source}
		}
		return value, nil
	case mnode.DataModeTransform:
		return expression.Eval(ctx, env, cfg.Expression)
	case mnode.DataModeFilter:
		return n.filter(ctx, env)
	case mnode.DataModeAggregate:
		return n.aggregate(env)
	default:
		return nil, fmt.Errorf("unsupported data mode %q", cfg.Mode)
	}
}

// filter keeps the items of the source list for which the expression is
// true. The item under inspection is bound as "item".
func (n NodeData) filter(ctx context.Context, env *expression.Env) ([]any, error) {
	items, err := n.sourceList(env)
	if err != nil {
		return nil, err
	}

	kept := make([]any, 0, len(items))
	for _, item := range items {
		itemEnv := env.Clone()
		if err := itemEnv.Set("item", item); err != nil {
			return nil, err
		}
		ok, err := expression.EvalBool(ctx, itemEnv, n.Config.Expression)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

func (n NodeData) aggregate(env *expression.Env) (any, error) {
	items, err := n.sourceList(env)
	if err != nil {
		return nil, err
	}

	if n.Config.Op == mnode.AggregateCount {
		return float64(len(items)), nil
	}

	numbers := make([]float64, 0, len(items))
	for _, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("aggregate %s: non-numeric item %v", n.Config.Op, item)
		}
		numbers = append(numbers, f)
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("aggregate %s over empty list %q", n.Config.Op, n.Config.Source)
	}

	switch n.Config.Op {
	case mnode.AggregateSum:
		return sum(numbers), nil
	case mnode.AggregateAvg:
		return sum(numbers) / float64(len(numbers)), nil
	case mnode.AggregateMin:
		m := numbers[0]
		for _, f := range numbers[1:] {
			if f < m {
				m = f
			}
		}
		return m, nil
	case mnode.AggregateMax:
		m := numbers[0]
		for _, f := range numbers[1:] {
			if f > m {
				m = f
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported aggregate op %q", n.Config.Op)
	}
}

func (n NodeData) sourceList(env *expression.Env) ([]any, error) {
	value, ok := env.Get(n.Config.Source)
	if !ok {
		return nil, &node.MissingVariableError{NodeName: n.Name, Path: n.Config.Source}
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("source %q is %T, want a list", n.Config.Source, value)
	}
	return items, nil
}

func sum(numbers []float64) float64 {
	var total float64
	for _, f := range numbers {
		total += f
	}
	return total
}

func toFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	default:
		return 0, false
	}
}
