// Package validator gates the draft to active transition of a flow. A flow
// activates only when its graph is structurally sound: one Start, at least
// one End, valid configs, valid port usage and no cycles. Unreachable nodes
// are reported as warnings without blocking activation. Validation is
// read-only and deterministic: the same graph always yields the same issues
// in the same order.
package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
	"github.com/JimGeek/Super/pkg/registry"
)

// Severity splits issues into blocking errors and advisory warnings.
type Severity int8

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Issue is one structural problem found in a flow graph.
type Issue struct {
	Code     string
	NodeID   idwrap.IDWrap
	Message  string
	Severity Severity
}

func (i Issue) String() string {
	if i.NodeID.IsZero() {
		return fmt.Sprintf("%s: %s", i.Code, i.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", i.Code, i.NodeID, i.Message)
}

// ValidationError aggregates every issue found in one pass, so authors fix
// the whole graph at once instead of replaying one error at a time.
type ValidationError struct {
	FlowID idwrap.IDWrap
	Issues []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		lines = append(lines, issue.String())
	}
	return fmt.Sprintf("flow %s invalid: %s", e.FlowID, strings.Join(lines, "; "))
}

// CyclicGraphError reports the first cycle found during validation.
type CyclicGraphError struct {
	Cycle []idwrap.IDWrap
}

func (e *CyclicGraphError) Error() string {
	parts := make([]string, 0, len(e.Cycle))
	for _, id := range e.Cycle {
		parts = append(parts, id.String())
	}
	return "flow graph contains a cycle: " + strings.Join(parts, " -> ")
}

const (
	CodeNoStart        = "no_start"
	CodeMultipleStarts = "multiple_starts"
	CodeNoEnd          = "no_end"
	CodeBadConfig      = "bad_config"
	CodeDanglingEdge   = "dangling_edge"
	CodeDuplicateEdge  = "duplicate_edge"
	CodeBadPort        = "bad_port"
	CodeMissingPort    = "missing_port"
	CodeTerminalEdge   = "terminal_edge"
	CodeUnreachable    = "unreachable"
	CodeCycle          = "cycle"
	CodeDuplicateName  = "duplicate_name"
)

// Check runs every validation pass and returns all findings, warnings
// included, in deterministic order.
func Check(flow *mflow.Flow, reg *registry.Registry) []Issue {
	v := &pass{flow: flow, reg: reg, nodes: make(map[idwrap.IDWrap]*mflow.Node, len(flow.Nodes))}
	for i := range flow.Nodes {
		v.nodes[flow.Nodes[i].ID] = &flow.Nodes[i]
	}

	v.checkStartAndEnd()
	v.checkNames()
	v.checkConfigs()
	v.checkEdges()
	v.checkReachability()
	v.checkAcyclic()

	sort.Slice(v.issues, func(i, j int) bool {
		a, b := v.issues[i], v.issues[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if c := a.NodeID.Compare(b.NodeID); c != 0 {
			return c < 0
		}
		return a.Message < b.Message
	})
	return v.issues
}

// Validate checks the flow graph against the registry. It returns nil for a
// sound graph, a *ValidationError listing every blocking issue otherwise.
// Unreachable nodes are warnings: they are sealed as skipped at run end, so
// they do not block activation. A cycle is also reported as a
// *CyclicGraphError wrapped into the issue list.
func Validate(flow *mflow.Flow, reg *registry.Registry) error {
	var fatal []Issue
	for _, issue := range Check(flow, reg) {
		if issue.Severity == SeverityError {
			fatal = append(fatal, issue)
		}
	}
	if len(fatal) == 0 {
		return nil
	}
	return &ValidationError{FlowID: flow.ID, Issues: fatal}
}

// Publish validates the flow and, on success, moves it from draft to active.
func Publish(flow *mflow.Flow, reg *registry.Registry) error {
	if !flow.CanTransition(mflow.FLOW_STATUS_ACTIVE) {
		return fmt.Errorf("flow %s cannot move from %s to active",
			flow.ID, mflow.StringFlowStatus(flow.Status))
	}
	if err := Validate(flow, reg); err != nil {
		return err
	}
	flow.Status = mflow.FLOW_STATUS_ACTIVE
	return nil
}

type pass struct {
	flow   *mflow.Flow
	reg    *registry.Registry
	nodes  map[idwrap.IDWrap]*mflow.Node
	issues []Issue
}

func (v *pass) add(code string, nodeID idwrap.IDWrap, format string, args ...any) {
	v.issues = append(v.issues, Issue{Code: code, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
}

func (v *pass) addWarn(code string, nodeID idwrap.IDWrap, format string, args ...any) {
	v.issues = append(v.issues, Issue{Code: code, NodeID: nodeID, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

func (v *pass) checkStartAndEnd() {
	var starts, ends []idwrap.IDWrap
	for _, n := range v.flow.Nodes {
		switch n.NodeKind {
		case mflow.NODE_KIND_START:
			starts = append(starts, n.ID)
		case mflow.NODE_KIND_END:
			ends = append(ends, n.ID)
		}
	}
	if len(starts) == 0 {
		v.add(CodeNoStart, idwrap.IDWrap{}, "flow has no start node")
	}
	for _, id := range starts[min(1, len(starts)):] {
		v.add(CodeMultipleStarts, id, "flow has more than one start node")
	}
	if len(ends) == 0 {
		v.add(CodeNoEnd, idwrap.IDWrap{}, "flow has no end node")
	}
}

func (v *pass) checkNames() {
	seen := make(map[string]idwrap.IDWrap, len(v.flow.Nodes))
	for _, n := range v.flow.Nodes {
		if n.Name == "" {
			v.add(CodeDuplicateName, n.ID, "node has no name")
			continue
		}
		if _, dup := seen[n.Name]; dup {
			v.add(CodeDuplicateName, n.ID, "node name %q is used more than once", n.Name)
			continue
		}
		seen[n.Name] = n.ID
	}
}

func (v *pass) checkConfigs() {
	for _, n := range v.flow.Nodes {
		if _, err := v.reg.ParseConfig(n.NodeKind, n.Config); err != nil {
			var cfgErr *mnode.InvalidConfigError
			if errors.As(err, &cfgErr) {
				err = cfgErr.WithNode(n.ID)
			}
			v.add(CodeBadConfig, n.ID, "%v", err)
		}
	}
}

func (v *pass) checkEdges() {
	// Outgoing edge count per source node and port. Every port of every
	// non-terminal node must end up with exactly one edge.
	counts := make(map[idwrap.IDWrap]map[mflow.EdgeHandle]int)

	for _, e := range v.flow.Edges {
		source, sourceOK := v.nodes[e.SourceID]
		if !sourceOK {
			v.add(CodeDanglingEdge, e.SourceID, "edge %s has unknown source", e.ID)
		}
		if _, ok := v.nodes[e.TargetID]; !ok {
			v.add(CodeDanglingEdge, e.TargetID, "edge %s has unknown target", e.ID)
		}
		if !sourceOK {
			continue
		}

		ports, err := v.reg.Ports(source.NodeKind)
		if err != nil {
			continue // unknown kind, already reported by checkConfigs
		}
		if len(ports) == 0 {
			v.add(CodeTerminalEdge, source.ID, "terminal node has outgoing edge %s", e.ID)
			continue
		}
		if !handleIn(ports, e.SourceHandle) {
			v.add(CodeBadPort, source.ID, "edge %s leaves unknown port %q",
				e.ID, mflow.StringEdgeHandle(e.SourceHandle))
			continue
		}
		if counts[source.ID] == nil {
			counts[source.ID] = make(map[mflow.EdgeHandle]int)
		}
		counts[source.ID][e.SourceHandle]++
	}

	// A port without an edge strands an outcome; a port with several edges
	// would fan the run out to more than one successor.
	for _, n := range v.flow.Nodes {
		ports, err := v.reg.Ports(n.NodeKind)
		if err != nil {
			continue
		}
		for _, port := range ports {
			switch c := counts[n.ID][port]; {
			case c == 0:
				v.add(CodeMissingPort, n.ID, "port %q has no outgoing edge", mflow.StringEdgeHandle(port))
			case c > 1:
				v.add(CodeDuplicateEdge, n.ID, "port %q has %d outgoing edges", mflow.StringEdgeHandle(port), c)
			}
		}
	}
}

func (v *pass) checkReachability() {
	start, ok := v.flow.StartNode()
	if !ok {
		return
	}

	adjacency := mflow.NewEdgesMap(v.flow.Edges)
	reached := map[idwrap.IDWrap]bool{start.ID: true}
	queue := []idwrap.IDWrap{start.ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, target := range mflow.AllTargets(adjacency, current) {
			if !reached[target] {
				reached[target] = true
				queue = append(queue, target)
			}
		}
	}

	for _, n := range v.flow.Nodes {
		if !reached[n.ID] {
			v.addWarn(CodeUnreachable, n.ID, "node %q is not reachable from start", n.Name)
		}
	}
}

func (v *pass) checkAcyclic() {
	adjacency := mflow.NewEdgesMap(v.flow.Edges)

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[idwrap.IDWrap]int, len(v.flow.Nodes))
	var stack []idwrap.IDWrap

	var visit func(id idwrap.IDWrap) *CyclicGraphError
	visit = func(id idwrap.IDWrap) *CyclicGraphError {
		color[id] = gray
		stack = append(stack, id)
		for _, target := range mflow.AllTargets(adjacency, id) {
			switch color[target] {
			case white:
				if cycle := visit(target); cycle != nil {
					return cycle
				}
			case gray:
				// Slice the stack back to the first occurrence of target.
				for i, sid := range stack {
					if sid == target {
						cycle := append([]idwrap.IDWrap{}, stack[i:]...)
						cycle = append(cycle, target)
						return &CyclicGraphError{Cycle: cycle}
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	// Deterministic visit order.
	ordered := make([]idwrap.IDWrap, 0, len(v.flow.Nodes))
	for _, n := range v.flow.Nodes {
		ordered = append(ordered, n.ID)
	}
	for _, id := range ordered {
		if color[id] != white {
			continue
		}
		stack = stack[:0]
		if cycle := visit(id); cycle != nil {
			v.add(CodeCycle, cycle.Cycle[0], "%v", cycle)
			return
		}
	}
}

func handleIn(ports []mflow.EdgeHandle, h mflow.EdgeHandle) bool {
	for _, port := range ports {
		if port == h {
			return true
		}
	}
	return false
}
