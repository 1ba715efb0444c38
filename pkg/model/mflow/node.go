//nolint:revive // exported
package mflow

import (
	"fmt"

	"github.com/JimGeek/Super/pkg/idwrap"
)

type NodeKind = int32

const (
	NODE_KIND_UNSPECIFIED  NodeKind = 0
	NODE_KIND_START        NodeKind = 1
	NODE_KIND_END          NodeKind = 2
	NODE_KIND_TRIGGER      NodeKind = 3
	NODE_KIND_CONDITION    NodeKind = 4
	NODE_KIND_ACTION       NodeKind = 5
	NODE_KIND_DATA         NodeKind = 6
	NODE_KIND_NOTIFICATION NodeKind = 7
	NODE_KIND_PAYMENT      NodeKind = 8
)

var nodeKindNames = map[NodeKind]string{
	NODE_KIND_START:        "start",
	NODE_KIND_END:          "end",
	NODE_KIND_TRIGGER:      "trigger",
	NODE_KIND_CONDITION:    "condition",
	NODE_KIND_ACTION:       "action",
	NODE_KIND_DATA:         "data",
	NODE_KIND_NOTIFICATION: "notification",
	NODE_KIND_PAYMENT:      "payment",
}

func StringNodeKind(k NodeKind) string {
	if s, ok := nodeKindNames[k]; ok {
		return s
	}
	return "unspecified"
}

func NodeKindFromString(s string) (NodeKind, error) {
	for k, name := range nodeKindNames {
		if name == s {
			return k, nil
		}
	}
	return NODE_KIND_UNSPECIFIED, fmt.Errorf("unknown node kind: %q", s)
}

type NodeState = int8

const (
	NODE_STATE_PENDING  NodeState = 0
	NODE_STATE_RUNNING  NodeState = 1
	NODE_STATE_SUCCESS  NodeState = 2
	NODE_STATE_FAILURE  NodeState = 3
	NODE_STATE_CANCELED NodeState = 4
	NODE_STATE_SKIPPED  NodeState = 5
)

func StringNodeState(a NodeState) string {
	return [...]string{"pending", "running", "completed", "failed", "cancelled", "skipped"}[a]
}

func NodeStateFromString(s string) (NodeState, error) {
	for state := NODE_STATE_PENDING; state <= NODE_STATE_SKIPPED; state++ {
		if StringNodeState(state) == s {
			return state, nil
		}
	}
	return NODE_STATE_PENDING, fmt.Errorf("unknown node state: %q", s)
}

// Node is one typed step inside a flow graph. Config holds the raw per-kind
// configuration map exactly as authored; typed parsing lives in mnode.
// Position is opaque to execution and only kept for document round-trips.
type Node struct {
	ID        idwrap.IDWrap
	FlowID    idwrap.IDWrap
	Name      string
	NodeKind  NodeKind
	Config    map[string]any
	PositionX float64
	PositionY float64
	State     NodeState
}
