package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JimGeek/Super/pkg/flow/validator"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/registry"
)

type graph struct {
	flow    *mflow.Flow
	ids     map[string]idwrap.IDWrap
	edgeSeq int
}

func newGraph() *graph {
	return &graph{
		flow: &mflow.Flow{ID: idwrap.NewNow(), Name: "test", Status: mflow.FLOW_STATUS_DRAFT},
		ids:  make(map[string]idwrap.IDWrap),
	}
}

func (g *graph) node(name string, kind mflow.NodeKind, config map[string]any) *graph {
	id := idwrap.NewNow()
	g.ids[name] = id
	g.flow.Nodes = append(g.flow.Nodes, mflow.Node{
		ID:       id,
		Name:     name,
		NodeKind: kind,
		Config:   config,
	})
	return g
}

func (g *graph) edge(from, to string, handle mflow.EdgeHandle) *graph {
	g.flow.Edges = append(g.flow.Edges, mflow.NewEdge(idwrap.NewNow(), g.ids[from], g.ids[to], handle))
	return g
}

func validFlow() *graph {
	return newGraph().
		node("start", mflow.NODE_KIND_START, nil).
		node("check", mflow.NODE_KIND_CONDITION, map[string]any{
			"field": "amount", "operator": "greater_than", "value": 500,
		}).
		node("finish_high", mflow.NODE_KIND_END, map[string]any{"resultType": "success"}).
		node("finish_low", mflow.NODE_KIND_END, map[string]any{"resultType": "success"}).
		edge("start", "check", mflow.HandleUnspecified).
		edge("check", "finish_high", mflow.HandleTrue).
		edge("check", "finish_low", mflow.HandleFalse)
}

func issueCodes(t *testing.T, err error) []string {
	t.Helper()
	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)
	codes := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

func TestValidFlowPasses(t *testing.T) {
	err := validator.Validate(validFlow().flow, registry.Default())
	assert.NoError(t, err)
}

func TestMissingStart(t *testing.T) {
	g := newGraph().node("finish", mflow.NODE_KIND_END, map[string]any{"resultType": "success"})
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeNoStart)
}

func TestMissingEnd(t *testing.T) {
	g := newGraph().node("start", mflow.NODE_KIND_START, nil)
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeNoEnd)
}

func TestMultipleStarts(t *testing.T) {
	g := validFlow().node("start2", mflow.NODE_KIND_START, nil).
		edge("start2", "check", mflow.HandleUnspecified)
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeMultipleStarts)
}

func TestBadConfig(t *testing.T) {
	g := newGraph().
		node("start", mflow.NODE_KIND_START, nil).
		node("pay", mflow.NODE_KIND_PAYMENT, map[string]any{"paymentKind": "collect"}). // no amount
		node("finish", mflow.NODE_KIND_END, map[string]any{"resultType": "success"}).
		node("cancel", mflow.NODE_KIND_END, map[string]any{"resultType": "failure"}).
		edge("start", "pay", mflow.HandleUnspecified).
		edge("pay", "finish", mflow.HandleSuccess).
		edge("pay", "cancel", mflow.HandleFailure)
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeBadConfig)

	// The config error names the offending node.
	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, issue := range verr.Issues {
		if issue.Code == validator.CodeBadConfig {
			assert.Contains(t, issue.Message, g.ids["pay"].String())
		}
	}
}

func TestDanglingEdge(t *testing.T) {
	g := validFlow()
	g.flow.Edges = append(g.flow.Edges, mflow.NewEdge(idwrap.NewNow(), g.ids["start"], idwrap.NewNow(), mflow.HandleUnspecified))
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeDanglingEdge)
}

func TestConditionMissingFalsePort(t *testing.T) {
	g := newGraph().
		node("start", mflow.NODE_KIND_START, nil).
		node("check", mflow.NODE_KIND_CONDITION, map[string]any{
			"field": "amount", "operator": "exists",
		}).
		node("finish", mflow.NODE_KIND_END, map[string]any{"resultType": "success"}).
		edge("start", "check", mflow.HandleUnspecified).
		edge("check", "finish", mflow.HandleTrue)
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeMissingPort)
}

func TestBadPortOnCondition(t *testing.T) {
	g := validFlow().edge("check", "finish_high", mflow.HandleSuccess)
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeBadPort)
}

func TestEdgeLeavingEndNode(t *testing.T) {
	g := validFlow().edge("finish_high", "finish_low", mflow.HandleUnspecified)
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeTerminalEdge)
}

func TestUnreachableNodeIsWarningOnly(t *testing.T) {
	g := validFlow().node("island", mflow.NODE_KIND_END, map[string]any{"resultType": "success"})
	assert.NoError(t, validator.Validate(g.flow, registry.Default()))

	issues := validator.Check(g.flow, registry.Default())
	require.Len(t, issues, 1)
	assert.Equal(t, validator.CodeUnreachable, issues[0].Code)
	assert.Equal(t, validator.SeverityWarning, issues[0].Severity)
	assert.Equal(t, g.ids["island"], issues[0].NodeID)
}

func TestPublishIgnoresWarnings(t *testing.T) {
	g := validFlow().node("island", mflow.NODE_KIND_END, map[string]any{"resultType": "success"})
	require.NoError(t, validator.Publish(g.flow, registry.Default()))
	assert.Equal(t, mflow.FLOW_STATUS_ACTIVE, g.flow.Status)
}

func TestDuplicateEdgesOnOnePort(t *testing.T) {
	g := validFlow().edge("check", "finish_low", mflow.HandleTrue)
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeDuplicateEdge)
}

func TestNonTerminalNodeWithoutOutgoingEdge(t *testing.T) {
	g := newGraph().
		node("start", mflow.NODE_KIND_START, nil).
		node("note", mflow.NODE_KIND_DATA, map[string]any{"mode": "constant", "key": "x", "value": 1}).
		node("finish", mflow.NODE_KIND_END, map[string]any{"resultType": "success"}).
		edge("start", "note", mflow.HandleUnspecified)
	// The data node dead-ends without reaching finish; that port must be
	// flagged, not waved through.
	err := validator.Validate(g.flow, registry.Default())
	codes := issueCodes(t, err)
	assert.Contains(t, codes, validator.CodeMissingPort)
}

func TestCycleDetected(t *testing.T) {
	g := newGraph().
		node("start", mflow.NODE_KIND_START, nil).
		node("a", mflow.NODE_KIND_DATA, map[string]any{"mode": "constant", "key": "x", "value": 1}).
		node("b", mflow.NODE_KIND_DATA, map[string]any{"mode": "constant", "key": "y", "value": 2}).
		node("finish", mflow.NODE_KIND_END, map[string]any{"resultType": "success"}).
		edge("start", "a", mflow.HandleUnspecified).
		edge("a", "b", mflow.HandleUnspecified).
		edge("b", "a", mflow.HandleUnspecified).
		edge("b", "finish", mflow.HandleUnspecified)
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeCycle)
}

func TestDuplicateNames(t *testing.T) {
	g := validFlow()
	g.flow.Nodes[2].Name = "check"
	err := validator.Validate(g.flow, registry.Default())
	assert.Contains(t, issueCodes(t, err), validator.CodeDuplicateName)
}

func TestIssuesAreDeterministicallyOrdered(t *testing.T) {
	build := func() *mflow.Flow {
		g := newGraph().
			node("check", mflow.NODE_KIND_CONDITION, map[string]any{"operator": "exists"}).
			node("check2", mflow.NODE_KIND_CONDITION, map[string]any{"operator": "exists"})
		return g.flow
	}
	first := validator.Validate(build(), registry.Default())
	require.Error(t, first)

	// Same shape of graph gives the same issue codes in the same order.
	second := validator.Validate(build(), registry.Default())
	assert.Equal(t, issueCodes(t, first), issueCodes(t, second))
}

func TestPublishActivatesValidDraft(t *testing.T) {
	flow := validFlow().flow
	require.NoError(t, validator.Publish(flow, registry.Default()))
	assert.Equal(t, mflow.FLOW_STATUS_ACTIVE, flow.Status)
}

func TestPublishRejectsInvalidGraph(t *testing.T) {
	g := newGraph().node("start", mflow.NODE_KIND_START, nil)
	err := validator.Publish(g.flow, registry.Default())
	require.Error(t, err)
	assert.Equal(t, mflow.FLOW_STATUS_DRAFT, g.flow.Status)
}

func TestPublishRejectsNonDraft(t *testing.T) {
	flow := validFlow().flow
	flow.Status = mflow.FLOW_STATUS_INACTIVE
	err := validator.Publish(flow, registry.Default())
	assert.Error(t, err)
}
