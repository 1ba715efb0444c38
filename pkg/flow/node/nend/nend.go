package nend

import (
	"context"
	"errors"

	"github.com/JimGeek/Super/pkg/expression"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/flow/runner"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

// ErrEndFailure is returned by an End node configured with the failure
// result type. The runner maps it to a failed run without retrying.
var ErrEndFailure = errors.New("flow ended with failure result")

// NodeEnd terminates a path through the flow. Its result type decides the
// run outcome and its return value is resolved into the run result.
type NodeEnd struct {
	FlowNodeID idwrap.IDWrap
	Name       string
	Config     mnode.NodeEnd
}

func New(id idwrap.IDWrap, name string, config mnode.NodeEnd) *NodeEnd {
	return &NodeEnd{
		FlowNodeID: id,
		Name:       name,
		Config:     config,
	}
}

func (n NodeEnd) GetID() idwrap.IDWrap {
	return n.FlowNodeID
}

func (n NodeEnd) GetName() string {
	return n.Name
}

func (n NodeEnd) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	varSnapshot := node.DeepCopyVarMap(req)
	env := expression.NewEnv(varSnapshot).WithTracking(req.VariableTracker)

	var returnValue any
	if n.Config.ReturnValue != "" {
		resolved, err := expression.ResolveValue(ctx, env, n.Config.ReturnValue)
		if err != nil {
			return node.FlowNodeResult{Err: err}
		}
		returnValue = resolved
	}

	output := map[string]any{
		"result_type": n.Config.ResultType,
		"value":       returnValue,
	}
	if err := node.WriteNodeVarRawWithTracking(req, n.Name, output, req.VariableTracker); err != nil {
		return node.FlowNodeResult{Err: err}
	}

	switch n.Config.ResultType {
	case mnode.ResultFailure:
		return node.FlowNodeResult{Err: ErrEndFailure}
	case mnode.ResultCancelled:
		return node.FlowNodeResult{Err: runner.ErrFlowCanceledByThrow}
	default:
		return node.FlowNodeResult{NextNodeID: nil, Err: nil}
	}
}

func (n NodeEnd) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- n.RunSync(ctx, req)
}
