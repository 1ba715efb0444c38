//nolint:revive // exported
package mflow

import (
	"fmt"
	"time"

	"github.com/JimGeek/Super/pkg/idwrap"
)

type FlowStatus = int8

const (
	FLOW_STATUS_DRAFT    FlowStatus = 0
	FLOW_STATUS_ACTIVE   FlowStatus = 1
	FLOW_STATUS_INACTIVE FlowStatus = 2
)

var flowStatusNames = map[FlowStatus]string{
	FLOW_STATUS_DRAFT:    "draft",
	FLOW_STATUS_ACTIVE:   "active",
	FLOW_STATUS_INACTIVE: "inactive",
}

func StringFlowStatus(s FlowStatus) string {
	return flowStatusNames[s]
}

func FlowStatusFromString(s string) (FlowStatus, error) {
	for st, name := range flowStatusNames {
		if name == s {
			return st, nil
		}
	}
	return FLOW_STATUS_DRAFT, fmt.Errorf("unknown flow status: %q", s)
}

// Flow is the versioned automation graph a merchant authors in the editor.
// A run only ever reads a flow; all mutation goes through whole-graph
// replacement while the flow is in draft.
type Flow struct {
	ID        idwrap.IDWrap
	Name      string
	Version   string
	Status    FlowStatus
	Tags      []string
	Nodes     []Node
	Edges     []Edge
	Variables []FlowVariable
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReplaceGraph swaps the whole node and edge set at once. Partial patches are
// not supported so validation stays atomic.
func (f *Flow) ReplaceGraph(nodes []Node, edges []Edge) error {
	if f.Status != FLOW_STATUS_DRAFT {
		return fmt.Errorf("flow %s is %s: graph edits require draft", f.ID, StringFlowStatus(f.Status))
	}
	f.Nodes = nodes
	f.Edges = edges
	f.UpdatedAt = time.Now()
	return nil
}

// CanTransition reports whether a status change is allowed by the lifecycle:
// draft -> active (publish, validator gated by the caller), active <-> inactive.
func (f *Flow) CanTransition(target FlowStatus) bool {
	switch f.Status {
	case FLOW_STATUS_DRAFT:
		return target == FLOW_STATUS_ACTIVE
	case FLOW_STATUS_ACTIVE:
		return target == FLOW_STATUS_INACTIVE
	case FLOW_STATUS_INACTIVE:
		return target == FLOW_STATUS_ACTIVE
	}
	return false
}

// NodeByID looks a node up in the flat node arena.
func (f *Flow) NodeByID(id idwrap.IDWrap) (Node, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// StartNode returns the single start node, if present.
func (f *Flow) StartNode() (Node, bool) {
	for _, n := range f.Nodes {
		if n.NodeKind == NODE_KIND_START {
			return n, true
		}
	}
	return Node{}, false
}
