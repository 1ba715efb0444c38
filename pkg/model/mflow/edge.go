//nolint:revive // exported
package mflow

import (
	"errors"
	"fmt"

	"github.com/JimGeek/Super/pkg/idwrap"
)

type EdgeHandle = int32

const (
	HandleUnspecified EdgeHandle = iota
	HandleTrue
	HandleFalse
	HandleSuccess
	HandleFailure
	HandleLength
)

var edgeHandleNames = map[EdgeHandle]string{
	HandleUnspecified: "",
	HandleTrue:        "true",
	HandleFalse:       "false",
	HandleSuccess:     "success",
	HandleFailure:     "failure",
}

func StringEdgeHandle(h EdgeHandle) string {
	return edgeHandleNames[h]
}

func EdgeHandleFromString(s string) (EdgeHandle, error) {
	for h, name := range edgeHandleNames {
		if name == s {
			return h, nil
		}
	}
	return HandleUnspecified, fmt.Errorf("unknown source port: %q", s)
}

var ErrEdgeNotFound = errors.New("edge not found")

// Edge connects a named output port of the source node to the target node.
type Edge struct {
	ID           idwrap.IDWrap
	FlowID       idwrap.IDWrap
	SourceID     idwrap.IDWrap
	TargetID     idwrap.IDWrap
	SourceHandle EdgeHandle
	Label        string
}

type (
	EdgesMap map[idwrap.IDWrap]map[EdgeHandle][]idwrap.IDWrap
)

func GetNextNodeID(edgesMap EdgesMap, sourceID idwrap.IDWrap, handle EdgeHandle) []idwrap.IDWrap {
	edges, ok := edgesMap[sourceID]
	if !ok {
		return nil
	}
	edge, ok := edges[handle]
	if !ok {
		return nil
	}

	return edge
}

// AllTargets returns every target reachable from sourceID over any port.
func AllTargets(edgesMap EdgesMap, sourceID idwrap.IDWrap) []idwrap.IDWrap {
	var targets []idwrap.IDWrap
	for _, ids := range edgesMap[sourceID] {
		targets = append(targets, ids...)
	}
	return targets
}

func NewEdge(id, sourceID, targetID idwrap.IDWrap, sourceHandle EdgeHandle) Edge {
	return Edge{
		ID:           id,
		SourceID:     sourceID,
		TargetID:     targetID,
		SourceHandle: sourceHandle,
	}
}

func NewEdges(edges ...Edge) []Edge {
	return edges
}

func NewEdgesMap(edges []Edge) EdgesMap {
	edgesMap := make(EdgesMap)
	for _, edge := range edges {
		if _, ok := edgesMap[edge.SourceID]; !ok {
			edgesMap[edge.SourceID] = make(map[EdgeHandle][]idwrap.IDWrap)
		}
		a := edgesMap[edge.SourceID][edge.SourceHandle]
		a = append(a, edge.TargetID)
		edgesMap[edge.SourceID][edge.SourceHandle] = a
	}
	return edgesMap
}
