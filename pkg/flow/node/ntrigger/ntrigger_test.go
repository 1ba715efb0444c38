package ntrigger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/flow/node/ntrigger"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

func TestRunSyncRecordsTriggerAndRoutes(t *testing.T) {
	triggerID := idwrap.NewNow()
	nextID := idwrap.NewNow()
	firedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	trigNode := ntrigger.NewWithClock(triggerID, "on_order_created", mnode.NodeTrigger{
		TriggerKind: "event",
		Event:       "order.created",
	}, func() time.Time { return firedAt })

	req := &node.FlowNodeRequest{
		VarMap:        map[string]any{},
		ReadWriteLock: &sync.RWMutex{},
		EdgeSourceMap: mflow.NewEdgesMap(mflow.NewEdges(
			mflow.NewEdge(idwrap.NewNow(), triggerID, nextID, mflow.HandleUnspecified),
		)),
	}

	result := trigNode.RunSync(context.Background(), req)
	require.NoError(t, result.Err)
	assert.Equal(t, []idwrap.IDWrap{nextID}, result.NextNodeID)

	output, ok := req.VarMap["on_order_created"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "event", output["trigger_kind"])
	assert.Equal(t, "order.created", output["event"])
	assert.Equal(t, "2026-03-14T09:30:00Z", output["fired_at"])
}
