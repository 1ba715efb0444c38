package mnode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mcondition"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

func TestParseCondition(t *testing.T) {
	cfg := map[string]any{
		"field":    "order.amount",
		"operator": "greater_than",
		"value":    500,
	}

	parsed, err := mnode.ParseCondition(cfg)
	require.NoError(t, err)
	assert.Equal(t, "order.amount", parsed.Condition.Field)
	assert.Equal(t, mcondition.OperatorGreaterThan, parsed.Condition.Operator)
}

func TestParseConditionValueRequired(t *testing.T) {
	_, err := mnode.ParseCondition(map[string]any{
		"field":    "order.amount",
		"operator": "equals",
	})
	require.Error(t, err)
	var cfgErr *mnode.InvalidConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "value", cfgErr.Key)

	// exists needs no comparison value
	parsed, err := mnode.ParseCondition(map[string]any{
		"field":    "order.coupon",
		"operator": "exists",
	})
	require.NoError(t, err)
	assert.Equal(t, mcondition.OperatorExists, parsed.Condition.Operator)
}

func TestParseActionDefaults(t *testing.T) {
	parsed, err := mnode.ParseAction(map[string]any{"url": "https://api.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "POST", parsed.Method)
	assert.Equal(t, "http", parsed.ActionKind)
	assert.Zero(t, parsed.TimeoutMs)
}

func TestParseActionTimeout(t *testing.T) {
	parsed, err := mnode.ParseAction(map[string]any{
		"url":       "https://api.example.com",
		"timeoutMs": float64(1500),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), parsed.TimeoutMs)

	_, err = mnode.ParseAction(map[string]any{
		"url":       "https://api.example.com",
		"timeoutMs": 1.5,
	})
	assert.Error(t, err)
}

func TestParsePaymentDefaultsToINR(t *testing.T) {
	parsed, err := mnode.ParsePayment(map[string]any{
		"paymentKind": "collect",
		"amount":      249.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "INR", parsed.Currency)
	assert.Equal(t, 249.0, parsed.Amount)
	assert.Empty(t, parsed.AmountExpr)
}

func TestParsePaymentAmountExpression(t *testing.T) {
	parsed, err := mnode.ParsePayment(map[string]any{
		"paymentKind": "collect",
		"amount":      "{{ order.amount }}",
	})
	require.NoError(t, err)
	assert.Equal(t, "{{ order.amount }}", parsed.AmountExpr)
	assert.Zero(t, parsed.Amount)
}

func TestParsePaymentRejectsUnknownKind(t *testing.T) {
	_, err := mnode.ParsePayment(map[string]any{
		"paymentKind": "wire",
		"amount":      100.0,
	})
	require.Error(t, err)
}

func TestParseNotification(t *testing.T) {
	parsed, err := mnode.ParseNotification(map[string]any{
		"channel":    "sms",
		"template":   "hi {{ customer.name }}",
		"recipients": []any{"{{ customer.phone }}"},
	})
	require.NoError(t, err)
	assert.Equal(t, mnode.ChannelSMS, parsed.Channel)
	assert.Len(t, parsed.Recipients, 1)

	_, err = mnode.ParseNotification(map[string]any{
		"channel":    "pigeon",
		"template":   "hi",
		"recipients": []any{"a"},
	})
	assert.Error(t, err)
}

func TestParseEnd(t *testing.T) {
	parsed, err := mnode.ParseEnd(map[string]any{"resultType": "failure"})
	require.NoError(t, err)
	assert.Equal(t, mnode.ResultFailure, parsed.ResultType)

	_, err = mnode.ParseEnd(map[string]any{"resultType": "maybe"})
	assert.Error(t, err)
}

func TestParseDataAggregate(t *testing.T) {
	parsed, err := mnode.ParseData(map[string]any{
		"mode":   "aggregate",
		"key":    "cart_total",
		"source": "cart.amounts",
		"op":     "sum",
	})
	require.NoError(t, err)
	assert.Equal(t, mnode.AggregateSum, parsed.Op)

	_, err = mnode.ParseData(map[string]any{
		"mode":   "aggregate",
		"key":    "cart_total",
		"source": "cart.amounts",
		"op":     "median",
	})
	assert.Error(t, err)
}

func TestInvalidConfigErrorMentionsNode(t *testing.T) {
	err := &mnode.InvalidConfigError{Key: "url", Reason: "required"}
	assert.Contains(t, err.Error(), "url")

	id := idwrap.NewNow()
	attributed := err.WithNode(id)
	assert.Contains(t, attributed.Error(), id.String())
	// The original stays unattributed.
	assert.True(t, err.NodeID.IsZero())
}
