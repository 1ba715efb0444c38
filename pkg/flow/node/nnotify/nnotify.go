// Package nnotify delivers a templated message through the notification
// capability. Recipients may themselves be variable references.
package nnotify

import (
	"context"
	"time"

	"github.com/JimGeek/Super/pkg/capability"
	"github.com/JimGeek/Super/pkg/expression"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

type NodeNotification struct {
	FlowNodeID idwrap.IDWrap
	Name       string
	Config     mnode.NodeNotification
	Cap        capability.NotificationCapability
	Retry      capability.RetryPolicy
}

func New(id idwrap.IDWrap, name string, config mnode.NodeNotification, cap capability.NotificationCapability, retry capability.RetryPolicy) *NodeNotification {
	return &NodeNotification{
		FlowNodeID: id,
		Name:       name,
		Config:     config,
		Cap:        cap,
		Retry:      retry,
	}
}

func (n NodeNotification) GetID() idwrap.IDWrap {
	return n.FlowNodeID
}

func (n NodeNotification) GetName() string {
	return n.Name
}

func (n NodeNotification) TimeoutOverride() (time.Duration, bool) {
	if n.Config.TimeoutMs <= 0 {
		return 0, false
	}
	return time.Duration(n.Config.TimeoutMs) * time.Millisecond, true
}

func (n NodeNotification) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	varSnapshot := node.DeepCopyVarMap(req)
	env := expression.NewEnv(varSnapshot).WithTracking(req.VariableTracker)

	message, err := expression.Interpolate(ctx, env, n.Config.Template)
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}

	recipients := make([]string, 0, len(n.Config.Recipients))
	for _, raw := range n.Config.Recipients {
		recipient, err := expression.Interpolate(ctx, env, raw)
		if err != nil {
			return node.FlowNodeResult{Err: err}
		}
		recipients = append(recipients, recipient)
	}

	notification := capability.Notification{
		Channel:    n.Config.Channel,
		Recipients: recipients,
		Message:    message,
	}

	var result capability.NotificationResult
	attempts, err := capability.Do(ctx, n.Retry, func(ctx context.Context) error {
		var callErr error
		result, callErr = n.Cap.Send(ctx, notification)
		return callErr
	})
	if err != nil {
		return node.FlowNodeResult{Err: err}
	}

	output := map[string]any{
		"channel":      n.Config.Channel,
		"delivery_ref": result.DeliveryRef,
		"delivered":    result.Delivered,
		"attempts":     attempts,
	}
	if err := node.WriteNodeVarRawWithTracking(req, n.Name, output, req.VariableTracker); err != nil {
		return node.FlowNodeResult{Err: err}
	}

	nextID := mflow.GetNextNodeID(req.EdgeSourceMap, n.FlowNodeID, mflow.HandleUnspecified)
	return node.FlowNodeResult{
		NextNodeID: nextID,
		Err:        nil,
	}
}

func (n NodeNotification) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- n.RunSync(ctx, req)
}
