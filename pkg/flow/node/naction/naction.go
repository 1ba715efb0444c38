// Package naction executes an outbound side effect through the action
// capability, with template interpolation, per-node timeout and bounded
// retries on transient provider faults.
package naction

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/JimGeek/Super/pkg/capability"
	"github.com/JimGeek/Super/pkg/expression"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

type NodeAction struct {
	FlowNodeID idwrap.IDWrap
	Name       string
	Config     mnode.NodeAction
	Cap        capability.ActionCapability
	Retry      capability.RetryPolicy
}

func New(id idwrap.IDWrap, name string, config mnode.NodeAction, cap capability.ActionCapability, retry capability.RetryPolicy) *NodeAction {
	return &NodeAction{
		FlowNodeID: id,
		Name:       name,
		Config:     config,
		Cap:        cap,
		Retry:      retry,
	}
}

func (n NodeAction) GetID() idwrap.IDWrap {
	return n.FlowNodeID
}

func (n NodeAction) GetName() string {
	return n.Name
}

// TimeoutOverride exposes the config timeout so the runner can bound this
// node tighter than the flow default.
func (n NodeAction) TimeoutOverride() (time.Duration, bool) {
	if n.Config.TimeoutMs <= 0 {
		return 0, false
	}
	return time.Duration(n.Config.TimeoutMs) * time.Millisecond, true
}

func (n NodeAction) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	varSnapshot := node.DeepCopyVarMap(req)
	env := expression.NewEnv(varSnapshot).WithTracking(req.VariableTracker)

	url, err := expression.Interpolate(ctx, env, n.Config.URL)
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}
	body, err := n.resolveBody(ctx, env)
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}
	headers := make(map[string]string, len(n.Config.Headers))
	for key, raw := range n.Config.Headers {
		value, err := expression.Interpolate(ctx, env, raw)
		if err != nil {
			return node.FlowNodeResult{Err: err}
		}
		headers[key] = value
	}

	actionReq := capability.ActionRequest{
		Kind:    n.Config.ActionKind,
		Method:  n.Config.Method,
		URL:     url,
		Headers: headers,
		Body:    body,
	}

	var result capability.ActionResult
	attempts, err := capability.Do(ctx, n.Retry, func(ctx context.Context) error {
		var callErr error
		result, callErr = n.Cap.Execute(ctx, actionReq)
		return callErr
	})
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}

	outputKey := n.Config.OutputKey
	if outputKey == "" {
		outputKey = n.Name
	}
	output := map[string]any{
		"status":   result.StatusCode,
		"body":     result.Body,
		"headers":  result.Headers,
		"attempts": attempts,
	}
	if err := node.WriteNodeVarRawWithTracking(req, outputKey, output, req.VariableTracker); err != nil {
		return node.FlowNodeResult{Err: err}
	}

	nextID := mflow.GetNextNodeID(req.EdgeSourceMap, n.FlowNodeID, mflow.HandleUnspecified)
	return node.FlowNodeResult{
		NextNodeID: nextID,
		Err:        nil,
	}
}

func (n NodeAction) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- n.RunSync(ctx, req)
}

// resolveBody interpolates every body value and serializes the result so
// the capability receives concrete JSON.
func (n NodeAction) resolveBody(ctx context.Context, env *expression.Env) (string, error) {
	if len(n.Config.Body) == 0 {
		return "", nil
	}

	resolved := make(map[string]any, len(n.Config.Body))
	for key, raw := range n.Config.Body {
		value, err := expression.ResolveValue(ctx, env, raw)
		if err != nil {
			return "", err
		}
		resolved[key] = value
	}

	encoded, err := json.Marshal(resolved)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
