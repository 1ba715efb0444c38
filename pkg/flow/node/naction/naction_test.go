package naction_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JimGeek/Super/pkg/capability"
	"github.com/JimGeek/Super/pkg/capability/fakecap"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/flow/node/naction"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

func newRequest(vars map[string]any) *node.FlowNodeRequest {
	return &node.FlowNodeRequest{
		VarMap:        vars,
		ReadWriteLock: &sync.RWMutex{},
		EdgeSourceMap: mflow.EdgesMap{},
	}
}

func TestRunSyncInterpolatesRequest(t *testing.T) {
	fake := fakecap.NewAction()
	actionNode := naction.New(idwrap.NewNow(), "notify_crm", mnode.NodeAction{
		ActionKind: "api_call",
		Method:     "POST",
		URL:        "https://api.example.com/orders/{{ order.id }}",
		Headers:    map[string]string{"X-Tenant": "{{ tenant }}"},
		Body:       map[string]any{"total": "{{ order.total }}", "note": "sync"},
	}, fake, capability.RetryPolicy{MaxAttempts: 1})

	req := newRequest(map[string]any{
		"order":  map[string]any{"id": "ord_42", "total": 750.0},
		"tenant": "acme",
	})
	result := actionNode.RunSync(context.Background(), req)
	require.NoError(t, result.Err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "https://api.example.com/orders/ord_42", calls[0].URL)
	assert.Equal(t, "acme", calls[0].Headers["X-Tenant"])
	assert.Contains(t, calls[0].Body, `"total":750`)
	assert.Contains(t, calls[0].Body, `"note":"sync"`)
}

func TestRunSyncWritesOutputUnderOutputKey(t *testing.T) {
	fake := fakecap.NewAction()
	fake.Script("https://api.example.com/ping", capability.ActionResult{
		StatusCode: 201,
		Body:       map[string]any{"id": "created"},
	})

	actionNode := naction.New(idwrap.NewNow(), "ping", mnode.NodeAction{
		ActionKind: "api_call",
		Method:     "GET",
		URL:        "https://api.example.com/ping",
		OutputKey:  "ping_response",
	}, fake, capability.RetryPolicy{MaxAttempts: 1})

	req := newRequest(map[string]any{})
	result := actionNode.RunSync(context.Background(), req)
	require.NoError(t, result.Err)

	output, ok := req.VarMap["ping_response"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 201, output["status"])
	assert.Equal(t, 1, output["attempts"])
}

func TestRunSyncRetriesTransientFaults(t *testing.T) {
	fake := fakecap.NewAction()
	fake.FailNext(capability.NewTransientError("action", errors.New("503 upstream")))

	actionNode := naction.New(idwrap.NewNow(), "call", mnode.NodeAction{
		ActionKind: "api_call",
		Method:     "GET",
		URL:        "https://api.example.com/flaky",
	}, fake, capability.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond})

	req := newRequest(map[string]any{})
	result := actionNode.RunSync(context.Background(), req)
	require.NoError(t, result.Err)
	require.Len(t, fake.Calls(), 2)

	output := req.VarMap["call"].(map[string]any)
	assert.Equal(t, 2, output["attempts"])
}

func TestRunSyncDoesNotRetryRejections(t *testing.T) {
	fake := fakecap.NewAction()
	fake.FailNext(capability.NewRejectedError("action", errors.New("401 unauthorized")))

	actionNode := naction.New(idwrap.NewNow(), "call", mnode.NodeAction{
		ActionKind: "api_call",
		Method:     "GET",
		URL:        "https://api.example.com/secure",
	}, fake, capability.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond})

	result := actionNode.RunSync(context.Background(), newRequest(map[string]any{}))
	require.Error(t, result.Err)
	assert.Len(t, fake.Calls(), 1)
}

func TestRunSyncUnresolvableTemplate(t *testing.T) {
	fake := fakecap.NewAction()
	actionNode := naction.New(idwrap.NewNow(), "call", mnode.NodeAction{
		ActionKind: "api_call",
		Method:     "GET",
		URL:        "https://api.example.com/{{ missing.ref }}",
	}, fake, capability.RetryPolicy{MaxAttempts: 1})

	result := actionNode.RunSync(context.Background(), newRequest(map[string]any{}))
	require.Error(t, result.Err)
	assert.Empty(t, fake.Calls())
}

func TestTimeoutOverride(t *testing.T) {
	withTimeout := naction.New(idwrap.NewNow(), "call", mnode.NodeAction{TimeoutMs: 250}, fakecap.NewAction(), capability.DefaultRetryPolicy())
	d, ok := withTimeout.TimeoutOverride()
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, d)

	noTimeout := naction.New(idwrap.NewNow(), "call", mnode.NodeAction{}, fakecap.NewAction(), capability.DefaultRetryPolicy())
	_, ok = noTimeout.TimeoutOverride()
	assert.False(t, ok)
}
