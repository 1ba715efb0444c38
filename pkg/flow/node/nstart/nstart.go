package nstart

import (
	"context"

	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

// NodeStart is the single entry point of a flow. It performs no work and
// routes to its default successors.
type NodeStart struct {
	FlowNodeID idwrap.IDWrap
	Name       string
}

func New(id idwrap.IDWrap, name string) *NodeStart {
	return &NodeStart{
		FlowNodeID: id,
		Name:       name,
	}
}

func (n NodeStart) GetID() idwrap.IDWrap {
	return n.FlowNodeID
}

func (n NodeStart) GetName() string {
	return n.Name
}

func (n NodeStart) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	nextID := mflow.GetNextNodeID(req.EdgeSourceMap, n.FlowNodeID, mflow.HandleUnspecified)
	return node.FlowNodeResult{
		NextNodeID: nextID,
		Err:        nil,
	}
}

func (n NodeStart) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- n.RunSync(ctx, req)
}
