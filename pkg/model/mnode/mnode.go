//nolint:revive // exported
package mnode

import (
	"fmt"

	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mcondition"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

// Config is the typed view of a node's raw configuration map. Each node kind
// has its own variant; ParseConfig in the registry package picks the
// constructor for a kind.
type Config interface {
	Kind() mflow.NodeKind
}

// InvalidConfigError reports a missing or type-incorrect configuration key.
// NodeID is filled by callers that know which node the map belongs to.
type InvalidConfigError struct {
	NodeID idwrap.IDWrap
	Key    string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("invalid config key %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("node %s: invalid config key %q: %s", e.NodeID, e.Key, e.Reason)
}

// WithNode returns a copy of the error attributed to the given node.
func (e *InvalidConfigError) WithNode(id idwrap.IDWrap) *InvalidConfigError {
	return &InvalidConfigError{NodeID: id, Key: e.Key, Reason: e.Reason}
}

// --- Start Node ---

type NodeStart struct{}

func (NodeStart) Kind() mflow.NodeKind { return mflow.NODE_KIND_START }

func ParseStart(cfg map[string]any) (NodeStart, error) {
	return NodeStart{}, nil
}

// --- End Node ---

type ResultType = string

const (
	ResultSuccess   ResultType = "success"
	ResultFailure   ResultType = "failure"
	ResultCancelled ResultType = "cancelled"
)

type NodeEnd struct {
	ResultType  ResultType
	ReturnValue string // optional, interpolated against run variables
}

func (NodeEnd) Kind() mflow.NodeKind { return mflow.NODE_KIND_END }

func ParseEnd(cfg map[string]any) (NodeEnd, error) {
	rt, err := requireString(cfg, "resultType")
	if err != nil {
		return NodeEnd{}, err
	}
	switch rt {
	case ResultSuccess, ResultFailure, ResultCancelled:
	default:
		return NodeEnd{}, &InvalidConfigError{Key: "resultType", Reason: fmt.Sprintf("must be success, failure or cancelled, got %q", rt)}
	}
	ret, err := optionalString(cfg, "returnValue")
	if err != nil {
		return NodeEnd{}, err
	}
	return NodeEnd{ResultType: rt, ReturnValue: ret}, nil
}

// --- Trigger Node ---

type TriggerKind = string

const (
	TriggerWebhook  TriggerKind = "webhook"
	TriggerSchedule TriggerKind = "schedule"
	TriggerEvent    TriggerKind = "event"
)

type NodeTrigger struct {
	TriggerKind TriggerKind
	Event       string // optional event name, e.g. order.placed
}

func (NodeTrigger) Kind() mflow.NodeKind { return mflow.NODE_KIND_TRIGGER }

func ParseTrigger(cfg map[string]any) (NodeTrigger, error) {
	tk, err := requireString(cfg, "triggerKind")
	if err != nil {
		return NodeTrigger{}, err
	}
	switch tk {
	case TriggerWebhook, TriggerSchedule, TriggerEvent:
	default:
		return NodeTrigger{}, &InvalidConfigError{Key: "triggerKind", Reason: fmt.Sprintf("must be webhook, schedule or event, got %q", tk)}
	}
	event, err := optionalString(cfg, "event")
	if err != nil {
		return NodeTrigger{}, err
	}
	return NodeTrigger{TriggerKind: tk, Event: event}, nil
}

// --- Condition Node ---

type NodeCondition struct {
	Condition mcondition.Condition
}

func (NodeCondition) Kind() mflow.NodeKind { return mflow.NODE_KIND_CONDITION }

func ParseCondition(cfg map[string]any) (NodeCondition, error) {
	field, err := requireString(cfg, "field")
	if err != nil {
		return NodeCondition{}, err
	}
	opStr, err := requireString(cfg, "operator")
	if err != nil {
		return NodeCondition{}, err
	}
	op, opErr := mcondition.ParseOperator(opStr)
	if opErr != nil {
		return NodeCondition{}, &InvalidConfigError{Key: "operator", Reason: opErr.Error()}
	}
	value := cfg["value"]
	if value == nil && op != mcondition.OperatorExists {
		return NodeCondition{}, &InvalidConfigError{Key: "value", Reason: fmt.Sprintf("required for operator %s", op)}
	}
	return NodeCondition{Condition: mcondition.Condition{
		Field:    field,
		Operator: op,
		Value:    value,
	}}, nil
}

// --- Action Node ---

type NodeAction struct {
	ActionKind string // http, api or custom
	Method     string
	URL        string
	Headers    map[string]string
	Body       map[string]any
	OutputKey  string // defaults to the node name
	TimeoutMs  int64
}

func (NodeAction) Kind() mflow.NodeKind { return mflow.NODE_KIND_ACTION }

func ParseAction(cfg map[string]any) (NodeAction, error) {
	url, err := requireString(cfg, "url")
	if err != nil {
		return NodeAction{}, err
	}
	kind, err := optionalString(cfg, "actionKind")
	if err != nil {
		return NodeAction{}, err
	}
	if kind == "" {
		kind = "http"
	}
	method, err := optionalString(cfg, "method")
	if err != nil {
		return NodeAction{}, err
	}
	if method == "" {
		method = "POST"
	}
	headers, err := optionalStringMap(cfg, "headers")
	if err != nil {
		return NodeAction{}, err
	}
	body, err := optionalAnyMap(cfg, "body")
	if err != nil {
		return NodeAction{}, err
	}
	outputKey, err := optionalString(cfg, "outputKey")
	if err != nil {
		return NodeAction{}, err
	}
	timeoutMs, err := optionalInt(cfg, "timeoutMs")
	if err != nil {
		return NodeAction{}, err
	}
	return NodeAction{
		ActionKind: kind,
		Method:     method,
		URL:        url,
		Headers:    headers,
		Body:       body,
		OutputKey:  outputKey,
		TimeoutMs:  timeoutMs,
	}, nil
}

// --- Data Node ---

type DataMode = string

const (
	DataModeVariable  DataMode = "variable"
	DataModeConstant  DataMode = "constant"
	DataModeTransform DataMode = "transform"
	DataModeFilter    DataMode = "filter"
	DataModeAggregate DataMode = "aggregate"
)

type AggregateOp = string

const (
	AggregateSum   AggregateOp = "sum"
	AggregateCount AggregateOp = "count"
	AggregateAvg   AggregateOp = "avg"
	AggregateMin   AggregateOp = "min"
	AggregateMax   AggregateOp = "max"
)

type NodeData struct {
	Mode       DataMode
	Key        string // target variable path
	Source     string // source variable path (variable, filter, aggregate)
	Value      any    // constant mode
	Expression string // transform and filter modes
	Op         AggregateOp
}

func (NodeData) Kind() mflow.NodeKind { return mflow.NODE_KIND_DATA }

func ParseData(cfg map[string]any) (NodeData, error) {
	mode, err := requireString(cfg, "mode")
	if err != nil {
		return NodeData{}, err
	}
	key, err := requireString(cfg, "key")
	if err != nil {
		return NodeData{}, err
	}
	out := NodeData{Mode: mode, Key: key}

	switch mode {
	case DataModeVariable:
		out.Source, err = requireString(cfg, "source")
	case DataModeConstant:
		var ok bool
		out.Value, ok = cfg["value"]
		if !ok {
			err = &InvalidConfigError{Key: "value", Reason: "required for constant mode"}
		}
	case DataModeTransform:
		out.Expression, err = requireString(cfg, "expression")
	case DataModeFilter:
		if out.Source, err = requireString(cfg, "source"); err == nil {
			out.Expression, err = requireString(cfg, "expression")
		}
	case DataModeAggregate:
		if out.Source, err = requireString(cfg, "source"); err == nil {
			out.Op, err = requireString(cfg, "op")
			if err == nil {
				switch out.Op {
				case AggregateSum, AggregateCount, AggregateAvg, AggregateMin, AggregateMax:
				default:
					err = &InvalidConfigError{Key: "op", Reason: fmt.Sprintf("unknown aggregate op %q", out.Op)}
				}
			}
		}
	default:
		err = &InvalidConfigError{Key: "mode", Reason: fmt.Sprintf("must be variable, constant, transform, filter or aggregate, got %q", mode)}
	}
	if err != nil {
		return NodeData{}, err
	}
	return out, nil
}

// --- Notification Node ---

type NotifyChannel = string

const (
	ChannelSMS      NotifyChannel = "sms"
	ChannelEmail    NotifyChannel = "email"
	ChannelPush     NotifyChannel = "push"
	ChannelWhatsApp NotifyChannel = "whatsapp"
	ChannelWebhook  NotifyChannel = "webhook"
)

type NodeNotification struct {
	Channel    NotifyChannel
	Template   string // interpolated against run variables
	Recipients []string
	TimeoutMs  int64
}

func (NodeNotification) Kind() mflow.NodeKind { return mflow.NODE_KIND_NOTIFICATION }

func ParseNotification(cfg map[string]any) (NodeNotification, error) {
	channel, err := requireString(cfg, "channel")
	if err != nil {
		return NodeNotification{}, err
	}
	switch channel {
	case ChannelSMS, ChannelEmail, ChannelPush, ChannelWhatsApp, ChannelWebhook:
	default:
		return NodeNotification{}, &InvalidConfigError{Key: "channel", Reason: fmt.Sprintf("unknown channel %q", channel)}
	}
	template, err := requireString(cfg, "template")
	if err != nil {
		return NodeNotification{}, err
	}
	recipients, err := requireStringSlice(cfg, "recipients")
	if err != nil {
		return NodeNotification{}, err
	}
	timeoutMs, err := optionalInt(cfg, "timeoutMs")
	if err != nil {
		return NodeNotification{}, err
	}
	return NodeNotification{
		Channel:    channel,
		Template:   template,
		Recipients: recipients,
		TimeoutMs:  timeoutMs,
	}, nil
}

// --- Payment Node ---

type PaymentKind = string

const (
	PaymentCollect PaymentKind = "collect"
	PaymentIntent  PaymentKind = "intent"
	PaymentQR      PaymentKind = "qr"
	PaymentMandate PaymentKind = "mandate"
	PaymentRefund  PaymentKind = "refund"
)

// NodePayment carries the UPI charge configuration. Amount may be a numeric
// literal or a {{ }} expression resolved at execution time (AmountExpr).
type NodePayment struct {
	PaymentKind PaymentKind
	Amount      float64
	AmountExpr  string
	Currency    string
	MaxAmount   float64
	Recurrence  string
	Description string
	TimeoutMs   int64
}

func (NodePayment) Kind() mflow.NodeKind { return mflow.NODE_KIND_PAYMENT }

func ParsePayment(cfg map[string]any) (NodePayment, error) {
	kind, err := requireString(cfg, "paymentKind")
	if err != nil {
		return NodePayment{}, err
	}
	switch kind {
	case PaymentCollect, PaymentIntent, PaymentQR, PaymentMandate, PaymentRefund:
	default:
		return NodePayment{}, &InvalidConfigError{Key: "paymentKind", Reason: fmt.Sprintf("unknown payment kind %q", kind)}
	}

	out := NodePayment{PaymentKind: kind, Currency: "INR"}

	rawAmount, ok := cfg["amount"]
	if !ok {
		return NodePayment{}, &InvalidConfigError{Key: "amount", Reason: "required"}
	}
	switch v := rawAmount.(type) {
	case string:
		out.AmountExpr = v
	default:
		amount, numErr := toFloat(v)
		if numErr != nil {
			return NodePayment{}, &InvalidConfigError{Key: "amount", Reason: "must be a number or expression string"}
		}
		out.Amount = amount
	}

	if currency, curErr := optionalString(cfg, "currency"); curErr != nil {
		return NodePayment{}, curErr
	} else if currency != "" {
		out.Currency = currency
	}
	if raw, ok := cfg["maxAmount"]; ok {
		maxAmount, numErr := toFloat(raw)
		if numErr != nil {
			return NodePayment{}, &InvalidConfigError{Key: "maxAmount", Reason: "must be a number"}
		}
		out.MaxAmount = maxAmount
	}
	if out.Recurrence, err = optionalString(cfg, "recurrence"); err != nil {
		return NodePayment{}, err
	}
	if out.Description, err = optionalString(cfg, "description"); err != nil {
		return NodePayment{}, err
	}
	if out.TimeoutMs, err = optionalInt(cfg, "timeoutMs"); err != nil {
		return NodePayment{}, err
	}
	return out, nil
}
