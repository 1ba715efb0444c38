// Package npayment drives a UPI money movement through the payment
// capability. A declined payment is a routing decision, not a node failure:
// the run continues out the failure port with the decline reason recorded.
package npayment

import (
	"context"
	"fmt"
	"time"

	"github.com/JimGeek/Super/pkg/capability"
	"github.com/JimGeek/Super/pkg/expression"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

type NodePayment struct {
	FlowNodeID idwrap.IDWrap
	Name       string
	Config     mnode.NodePayment
	Cap        capability.PaymentCapability
	Retry      capability.RetryPolicy
}

func New(id idwrap.IDWrap, name string, config mnode.NodePayment, cap capability.PaymentCapability, retry capability.RetryPolicy) *NodePayment {
	return &NodePayment{
		FlowNodeID: id,
		Name:       name,
		Config:     config,
		Cap:        cap,
		Retry:      retry,
	}
}

func (n NodePayment) GetID() idwrap.IDWrap {
	return n.FlowNodeID
}

func (n NodePayment) GetName() string {
	return n.Name
}

func (n NodePayment) TimeoutOverride() (time.Duration, bool) {
	if n.Config.TimeoutMs <= 0 {
		return 0, false
	}
	return time.Duration(n.Config.TimeoutMs) * time.Millisecond, true
}

func (n NodePayment) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	varSnapshot := node.DeepCopyVarMap(req)
	env := expression.NewEnv(varSnapshot).WithTracking(req.VariableTracker)

	amount, err := n.resolveAmount(ctx, env)
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}
	description, err := expression.Interpolate(ctx, env, n.Config.Description)
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}

	paymentReq := capability.PaymentRequest{
		Kind:        n.Config.PaymentKind,
		Amount:      amount,
		Currency:    n.Config.Currency,
		MaxAmount:   n.Config.MaxAmount,
		Recurrence:  n.Config.Recurrence,
		Description: description,
		ReferenceID: req.ExecutionID.String(),
	}

	var result capability.PaymentResult
	attempts, err := capability.Do(ctx, n.Retry, func(ctx context.Context) error {
		var callErr error
		result, callErr = n.Cap.Process(ctx, paymentReq)
		return callErr
	})
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}

	output := map[string]any{
		"ok":       result.OK,
		"kind":     n.Config.PaymentKind,
		"amount":   amount,
		"currency": n.Config.Currency,
		"attempts": attempts,
	}
	if result.OK {
		output["transaction_ref"] = result.TransactionRef
		for k, v := range result.Details {
			output[k] = v
		}
	} else {
		output["failure_reason"] = result.FailureReason
	}
	if err := node.WriteNodeVarRawWithTracking(req, n.Name, output, req.VariableTracker); err != nil {
		return node.FlowNodeResult{Err: err}
	}

	handle := mflow.HandleFailure
	if result.OK {
		handle = mflow.HandleSuccess
	}
	nextID := mflow.GetNextNodeID(req.EdgeSourceMap, n.FlowNodeID, handle)
	return node.FlowNodeResult{
		NextNodeID: nextID,
		Err:        nil,
	}
}

func (n NodePayment) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- n.RunSync(ctx, req)
}

func (n NodePayment) resolveAmount(ctx context.Context, env *expression.Env) (float64, error) {
	if n.Config.AmountExpr == "" {
		return n.Config.Amount, nil
	}

	resolved, err := expression.ResolveValue(ctx, env, n.Config.AmountExpr)
	if err != nil {
		return 0, err
	}
	switch f := resolved.(type) {
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	case int64:
		return float64(f), nil
	default:
		return 0, fmt.Errorf("amount expression %q resolved to %T, want a number", n.Config.AmountExpr, resolved)
	}
}
