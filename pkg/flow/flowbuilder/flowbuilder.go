//nolint:revive // exported
// Package flowbuilder turns a validated flow model into executable nodes.
// It parses each node's config through the registry, binds capability-backed
// nodes to their capabilities and hands back a ready runner.
package flowbuilder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/JimGeek/Super/pkg/capability"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/flow/node/naction"
	"github.com/JimGeek/Super/pkg/flow/node/ncondition"
	"github.com/JimGeek/Super/pkg/flow/node/ndata"
	"github.com/JimGeek/Super/pkg/flow/node/nend"
	"github.com/JimGeek/Super/pkg/flow/node/nnotify"
	"github.com/JimGeek/Super/pkg/flow/node/npayment"
	"github.com/JimGeek/Super/pkg/flow/node/nstart"
	"github.com/JimGeek/Super/pkg/flow/node/ntrigger"
	"github.com/JimGeek/Super/pkg/flow/runner/flowlocalrunner"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
	"github.com/JimGeek/Super/pkg/registry"
)

type Builder struct {
	Registry     *registry.Registry
	Capabilities capability.Set
	Retry        capability.RetryPolicy
	Logger       *slog.Logger
}

func New(reg *registry.Registry, caps capability.Set, retry capability.RetryPolicy, logger *slog.Logger) *Builder {
	return &Builder{
		Registry:     reg,
		Capabilities: caps,
		Retry:        retry,
		Logger:       logger,
	}
}

// BuildNodes materializes every node of the flow into its executable form.
func (b *Builder) BuildNodes(flow *mflow.Flow) (map[idwrap.IDWrap]node.FlowNode, error) {
	nodeMap := make(map[idwrap.IDWrap]node.FlowNode, len(flow.Nodes))
	for _, n := range flow.Nodes {
		built, err := b.buildNode(n)
		if err != nil {
			return nil, fmt.Errorf("build node %q: %w", n.Name, err)
		}
		nodeMap[n.ID] = built
	}
	return nodeMap, nil
}

// BuildRunner wires the whole flow into a local runner rooted at its start
// node. The flow is expected to be validated already.
func (b *Builder) BuildRunner(flow *mflow.Flow, runID idwrap.IDWrap, timeout time.Duration) (*flowlocalrunner.FlowLocalRunner, error) {
	nodeMap, err := b.BuildNodes(flow)
	if err != nil {
		return nil, err
	}

	start, ok := flow.StartNode()
	if !ok {
		return nil, fmt.Errorf("flow %s has no start node", flow.ID)
	}

	edgesMap := mflow.NewEdgesMap(flow.Edges)
	b.Logger.Debug("flow runner built",
		slog.String("flow_id", flow.ID.String()),
		slog.String("run_id", runID.String()),
		slog.Int("nodes", len(nodeMap)),
		slog.Int("edges", len(flow.Edges)))
	return flowlocalrunner.CreateFlowRunner(runID, flow.ID, start.ID, nodeMap, edgesMap, timeout), nil
}

func (b *Builder) buildNode(n mflow.Node) (node.FlowNode, error) {
	config, err := b.Registry.ParseConfig(n.NodeKind, n.Config)
	if err != nil {
		return nil, err
	}

	switch cfg := config.(type) {
	case mnode.NodeStart:
		return nstart.New(n.ID, n.Name), nil
	case mnode.NodeEnd:
		return nend.New(n.ID, n.Name, cfg), nil
	case mnode.NodeTrigger:
		return ntrigger.New(n.ID, n.Name, cfg), nil
	case mnode.NodeCondition:
		return ncondition.New(n.ID, n.Name, cfg), nil
	case mnode.NodeAction:
		if b.Capabilities.Action == nil {
			return nil, fmt.Errorf("no action capability bound")
		}
		return naction.New(n.ID, n.Name, cfg, b.Capabilities.Action, b.Retry), nil
	case mnode.NodeData:
		return ndata.New(n.ID, n.Name, cfg), nil
	case mnode.NodeNotification:
		if b.Capabilities.Notification == nil {
			return nil, fmt.Errorf("no notification capability bound")
		}
		return nnotify.New(n.ID, n.Name, cfg, b.Capabilities.Notification, b.Retry), nil
	case mnode.NodePayment:
		if b.Capabilities.Payment == nil {
			return nil, fmt.Errorf("no payment capability bound")
		}
		return npayment.New(n.ID, n.Name, cfg, b.Capabilities.Payment, b.Retry), nil
	default:
		return nil, fmt.Errorf("no executable form for node kind %s", mflow.StringNodeKind(n.NodeKind))
	}
}
