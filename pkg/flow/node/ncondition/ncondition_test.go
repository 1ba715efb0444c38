package ncondition_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JimGeek/Super/pkg/expression"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/flow/node/ncondition"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mcondition"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

func evaluate(t *testing.T, cond mcondition.Condition, vars map[string]any) (bool, error) {
	t.Helper()
	return ncondition.Evaluate(context.Background(), expression.NewEnv(vars), cond)
}

func TestOperators(t *testing.T) {
	vars := map[string]any{
		"amount": 750.0,
		"status": "paid",
		"tags":   []any{"vip", "repeat"},
	}

	tests := []struct {
		name string
		cond mcondition.Condition
		want bool
	}{
		{"equals", mcondition.Condition{Field: "status", Operator: mcondition.OperatorEquals, Value: "paid"}, true},
		{"not_equals", mcondition.Condition{Field: "status", Operator: mcondition.OperatorNotEquals, Value: "failed"}, true},
		{"greater_than", mcondition.Condition{Field: "amount", Operator: mcondition.OperatorGreaterThan, Value: 500}, true},
		{"less_than", mcondition.Condition{Field: "amount", Operator: mcondition.OperatorLessThan, Value: 500}, false},
		{"contains string", mcondition.Condition{Field: "status", Operator: mcondition.OperatorContains, Value: "ai"}, true},
		{"contains list", mcondition.Condition{Field: "tags", Operator: mcondition.OperatorContains, Value: "vip"}, true},
		{"exists", mcondition.Condition{Field: "amount", Operator: mcondition.OperatorExists}, true},
		{"exists missing", mcondition.Condition{Field: "discount", Operator: mcondition.OperatorExists}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluate(t, tt.cond, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumericCoercion(t *testing.T) {
	vars := map[string]any{"amount": "750"}

	got, err := evaluate(t, mcondition.Condition{
		Field: "amount", Operator: mcondition.OperatorEquals, Value: 750,
	}, vars)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = evaluate(t, mcondition.Condition{
		Field: "amount", Operator: mcondition.OperatorGreaterThan, Value: 500,
	}, vars)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMissingFieldFailsUnlessExists(t *testing.T) {
	_, err := evaluate(t, mcondition.Condition{
		Field: "missing", Operator: mcondition.OperatorEquals, Value: 1,
	}, map[string]any{})
	assert.Error(t, err)
}

func TestConditionValueMayBeTemplate(t *testing.T) {
	vars := map[string]any{"amount": 750.0, "threshold": 500.0}

	got, err := evaluate(t, mcondition.Condition{
		Field: "amount", Operator: mcondition.OperatorGreaterThan, Value: "{{ threshold }}",
	}, vars)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestRunSyncRoutesPorts(t *testing.T) {
	nodeID := idwrap.NewNow()
	onTrue := idwrap.NewNow()
	onFalse := idwrap.NewNow()

	edges := mflow.NewEdgesMap(mflow.NewEdges(
		mflow.NewEdge(idwrap.NewNow(), nodeID, onTrue, mflow.HandleTrue),
		mflow.NewEdge(idwrap.NewNow(), nodeID, onFalse, mflow.HandleFalse),
	))

	cond := ncondition.New(nodeID, "amount_check", mnode.NodeCondition{
		Condition: mcondition.Condition{Field: "amount", Operator: mcondition.OperatorGreaterThan, Value: 500},
	})

	run := func(amount float64) node.FlowNodeResult {
		req := &node.FlowNodeRequest{
			VarMap:        map[string]any{"amount": amount},
			ReadWriteLock: &sync.RWMutex{},
			EdgeSourceMap: edges,
		}
		return cond.RunSync(context.Background(), req)
	}

	result := run(750)
	require.NoError(t, result.Err)
	assert.Equal(t, []idwrap.IDWrap{onTrue}, result.NextNodeID)

	result = run(100)
	require.NoError(t, result.Err)
	assert.Equal(t, []idwrap.IDWrap{onFalse}, result.NextNodeID)
}

func TestRunSyncMissingVariable(t *testing.T) {
	nodeID := idwrap.NewNow()
	cond := ncondition.New(nodeID, "check", mnode.NodeCondition{
		Condition: mcondition.Condition{Field: "ghost", Operator: mcondition.OperatorEquals, Value: 1},
	})

	req := &node.FlowNodeRequest{
		VarMap:        map[string]any{},
		ReadWriteLock: &sync.RWMutex{},
		EdgeSourceMap: mflow.EdgesMap{},
	}
	result := cond.RunSync(context.Background(), req)
	require.Error(t, result.Err)
	var missing *node.MissingVariableError
	assert.ErrorAs(t, result.Err, &missing)
}
