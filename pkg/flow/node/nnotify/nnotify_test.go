package nnotify_test

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
	"github.com/JimGeek/Super/pkg/flow/node/nnotify"
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

func TestRunSyncRendersTemplateAndRecipients(t *testing.T) {
	fake := fakecap.NewNotification()
	notifyNode := nnotify.New(idwrap.NewNow(), "confirm_order", mnode.NodeNotification{
		Channel:    mnode.ChannelSMS,
		Template:   "Order {{ order.id }} confirmed, total {{ order.total }}",
		Recipients: []string{"{{ customer.phone }}"},
	}, fake, capability.RetryPolicy{MaxAttempts: 1})

	req := newRequest(map[string]any{
		"order":    map[string]any{"id": "ord_42", "total": 750.0},
		"customer": map[string]any{"phone": "+919900112233"},
	})
	result := notifyNode.RunSync(context.Background(), req)
	require.NoError(t, result.Err)

	sent := fake.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Order ord_42 confirmed, total 750", sent[0].Message)
	assert.Equal(t, []string{"+919900112233"}, sent[0].Recipients)
	assert.Equal(t, mnode.ChannelSMS, sent[0].Channel)

	output := req.VarMap["confirm_order"].(map[string]any)
	assert.Equal(t, 1, output["delivered"])
	assert.NotEmpty(t, output["delivery_ref"])
}

func TestRunSyncUnresolvableTemplateFails(t *testing.T) {
	fake := fakecap.NewNotification()
	notifyNode := nnotify.New(idwrap.NewNow(), "confirm_order", mnode.NodeNotification{
		Channel:    mnode.ChannelEmail,
		Template:   "Hi {{ customer.ghost }}",
		Recipients: []string{"a@example.com"},
	}, fake, capability.RetryPolicy{MaxAttempts: 1})

	result := notifyNode.RunSync(context.Background(), newRequest(map[string]any{}))
	require.Error(t, result.Err)
	assert.Empty(t, fake.Sent())
}

func TestRunSyncRetriesTransientDeliveryFault(t *testing.T) {
	fake := fakecap.NewNotification()
	fake.FailNext(capability.NewTransientError("notification", errors.New("provider busy")))

	notifyNode := nnotify.New(idwrap.NewNow(), "confirm_order", mnode.NodeNotification{
		Channel:    mnode.ChannelPush,
		Template:   "ping",
		Recipients: []string{"device-1"},
	}, fake, capability.RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond})

	req := newRequest(map[string]any{})
	result := notifyNode.RunSync(context.Background(), req)
	require.NoError(t, result.Err)

	output := req.VarMap["confirm_order"].(map[string]any)
	assert.Equal(t, 2, output["attempts"])
	assert.Len(t, fake.Sent(), 1)
}

func TestRunSyncRejectedDeliveryFailsNode(t *testing.T) {
	fake := fakecap.NewNotification()
	notifyNode := nnotify.New(idwrap.NewNow(), "confirm_order", mnode.NodeNotification{
		Channel:  mnode.ChannelEmail,
		Template: "hello",
	}, fake, capability.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond})

	result := notifyNode.RunSync(context.Background(), newRequest(map[string]any{}))
	require.Error(t, result.Err)
	var capErr *capability.Error
	assert.ErrorAs(t, result.Err, &capErr)
	assert.Equal(t, capability.ErrorKindRejected, capErr.Kind)
}

func TestTimeoutOverride(t *testing.T) {
	notifyNode := nnotify.New(idwrap.NewNow(), "n", mnode.NodeNotification{TimeoutMs: 100}, fakecap.NewNotification(), capability.DefaultRetryPolicy())
	d, ok := notifyNode.TimeoutOverride()
	require.True(t, ok)
	assert.Equal(t, 100*time.Millisecond, d)
}
