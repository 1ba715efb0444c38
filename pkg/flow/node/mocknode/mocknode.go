package mocknode

import (
	"context"

	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/idwrap"
)

// MockNode is a scriptable node for runner tests: fixed successors, an
// optional error and an optional callback per run.
type MockNode struct {
	ID    idwrap.IDWrap
	Name  string
	Next  []idwrap.IDWrap
	Err   error
	OnRun func()
}

func NewMockNode(id idwrap.IDWrap, next []idwrap.IDWrap, onRun func()) *MockNode {
	return &MockNode{
		ID:    id,
		Name:  "mock",
		Next:  next,
		OnRun: onRun,
	}
}

func (mn *MockNode) GetID() idwrap.IDWrap {
	return mn.ID
}

func (mn *MockNode) GetName() string {
	return mn.Name
}

func (mn *MockNode) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	if mn.OnRun != nil {
		mn.OnRun()
	}
	return node.FlowNodeResult{
		NextNodeID: mn.Next,
		Err:        mn.Err,
	}
}

func (mn *MockNode) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	resultChan <- mn.RunSync(ctx, req)
}
