package ntrigger

import (
	"context"
	"time"

	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

// NodeTrigger marks the external event that admitted this run. The event
// payload itself is seeded into the variable map before the run starts; the
// node records which trigger fired and routes onward.
type NodeTrigger struct {
	FlowNodeID idwrap.IDWrap
	Name       string
	Config     mnode.NodeTrigger
	now        func() time.Time
}

func New(id idwrap.IDWrap, name string, config mnode.NodeTrigger) *NodeTrigger {
	return &NodeTrigger{
		FlowNodeID: id,
		Name:       name,
		Config:     config,
		now:        time.Now,
	}
}

// NewWithClock pins the trigger timestamp for deterministic replay.
func NewWithClock(id idwrap.IDWrap, name string, config mnode.NodeTrigger, now func() time.Time) *NodeTrigger {
	n := New(id, name, config)
	n.now = now
	return n
}

func (n NodeTrigger) GetID() idwrap.IDWrap {
	return n.FlowNodeID
}

func (n NodeTrigger) GetName() string {
	return n.Name
}

func (n NodeTrigger) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	output := map[string]any{
		"trigger_kind": n.Config.TriggerKind,
		"event":        n.Config.Event,
		"fired_at":     n.now().UTC().Format(time.RFC3339),
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

func (n NodeTrigger) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- n.RunSync(ctx, req)
}
