// Package registry declares, for every node kind, the configuration schema it
// accepts and the output ports it may emit. The validator and the execution
// engine both consult the same registry so they never disagree on port sets.
package registry

import (
	"fmt"

	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/model/mnode"
)

type FieldType = string

const (
	FieldString     FieldType = "string"
	FieldNumber     FieldType = "number"
	FieldStringList FieldType = "stringList"
	FieldMap        FieldType = "map"
	FieldAny        FieldType = "any"
)

// FieldSpec describes one configuration key of a node kind.
type FieldSpec struct {
	Key      string
	Type     FieldType
	Required bool
	Enum     []string
}

// Descriptor is the full declaration of a node kind.
type Descriptor struct {
	Kind   mflow.NodeKind
	Fields []FieldSpec
	Ports  []mflow.EdgeHandle
	parse  func(map[string]any) (mnode.Config, error)
}

// Terminal reports whether nodes of this kind have no outgoing edges.
func (d Descriptor) Terminal() bool {
	return len(d.Ports) == 0
}

type UnknownNodeTypeError struct {
	Kind mflow.NodeKind
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("unknown node type: %d (%s)", e.Kind, mflow.StringNodeKind(e.Kind))
}

// Registry is a pure lookup table from node kind to descriptor.
type Registry struct {
	descriptors map[mflow.NodeKind]Descriptor
}

func New() *Registry {
	return &Registry{descriptors: make(map[mflow.NodeKind]Descriptor)}
}

func (r *Registry) Register(d Descriptor) {
	r.descriptors[d.Kind] = d
}

func (r *Registry) Describe(kind mflow.NodeKind) (Descriptor, error) {
	d, ok := r.descriptors[kind]
	if !ok {
		return Descriptor{}, &UnknownNodeTypeError{Kind: kind}
	}
	return d, nil
}

// ParseConfig builds the typed config variant for a node kind from its raw
// configuration map.
func (r *Registry) ParseConfig(kind mflow.NodeKind, cfg map[string]any) (mnode.Config, error) {
	d, err := r.Describe(kind)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	return d.parse(cfg)
}

// Ports returns the exact port set nodes of the given kind must cover with
// outgoing edges.
func (r *Registry) Ports(kind mflow.NodeKind) ([]mflow.EdgeHandle, error) {
	d, err := r.Describe(kind)
	if err != nil {
		return nil, err
	}
	return d.Ports, nil
}

func wrap[T mnode.Config](parse func(map[string]any) (T, error)) func(map[string]any) (mnode.Config, error) {
	return func(cfg map[string]any) (mnode.Config, error) {
		v, err := parse(cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Default returns the registry with every built-in node kind registered.
func Default() *Registry {
	r := New()
	r.Register(Descriptor{
		Kind:  mflow.NODE_KIND_START,
		Ports: []mflow.EdgeHandle{mflow.HandleUnspecified},
		parse: wrap(mnode.ParseStart),
	})
	r.Register(Descriptor{
		Kind: mflow.NODE_KIND_END,
		Fields: []FieldSpec{
			{Key: "resultType", Type: FieldString, Required: true, Enum: []string{mnode.ResultSuccess, mnode.ResultFailure, mnode.ResultCancelled}},
			{Key: "returnValue", Type: FieldString},
		},
		parse: wrap(mnode.ParseEnd),
	})
	r.Register(Descriptor{
		Kind: mflow.NODE_KIND_TRIGGER,
		Fields: []FieldSpec{
			{Key: "triggerKind", Type: FieldString, Required: true, Enum: []string{mnode.TriggerWebhook, mnode.TriggerSchedule, mnode.TriggerEvent}},
			{Key: "event", Type: FieldString},
		},
		Ports: []mflow.EdgeHandle{mflow.HandleUnspecified},
		parse: wrap(mnode.ParseTrigger),
	})
	r.Register(Descriptor{
		Kind: mflow.NODE_KIND_CONDITION,
		Fields: []FieldSpec{
			{Key: "field", Type: FieldString, Required: true},
			{Key: "operator", Type: FieldString, Required: true},
			{Key: "value", Type: FieldAny},
		},
		Ports: []mflow.EdgeHandle{mflow.HandleTrue, mflow.HandleFalse},
		parse: wrap(mnode.ParseCondition),
	})
	r.Register(Descriptor{
		Kind: mflow.NODE_KIND_ACTION,
		Fields: []FieldSpec{
			{Key: "url", Type: FieldString, Required: true},
			{Key: "actionKind", Type: FieldString},
			{Key: "method", Type: FieldString},
			{Key: "headers", Type: FieldMap},
			{Key: "body", Type: FieldMap},
			{Key: "outputKey", Type: FieldString},
			{Key: "timeoutMs", Type: FieldNumber},
		},
		Ports: []mflow.EdgeHandle{mflow.HandleUnspecified},
		parse: wrap(mnode.ParseAction),
	})
	r.Register(Descriptor{
		Kind: mflow.NODE_KIND_DATA,
		Fields: []FieldSpec{
			{Key: "mode", Type: FieldString, Required: true, Enum: []string{mnode.DataModeVariable, mnode.DataModeConstant, mnode.DataModeTransform, mnode.DataModeFilter, mnode.DataModeAggregate}},
			{Key: "key", Type: FieldString, Required: true},
			{Key: "source", Type: FieldString},
			{Key: "value", Type: FieldAny},
			{Key: "expression", Type: FieldString},
			{Key: "op", Type: FieldString},
		},
		Ports: []mflow.EdgeHandle{mflow.HandleUnspecified},
		parse: wrap(mnode.ParseData),
	})
	r.Register(Descriptor{
		Kind: mflow.NODE_KIND_NOTIFICATION,
		Fields: []FieldSpec{
			{Key: "channel", Type: FieldString, Required: true, Enum: []string{mnode.ChannelSMS, mnode.ChannelEmail, mnode.ChannelPush, mnode.ChannelWhatsApp, mnode.ChannelWebhook}},
			{Key: "template", Type: FieldString, Required: true},
			{Key: "recipients", Type: FieldStringList, Required: true},
			{Key: "timeoutMs", Type: FieldNumber},
		},
		Ports: []mflow.EdgeHandle{mflow.HandleUnspecified},
		parse: wrap(mnode.ParseNotification),
	})
	r.Register(Descriptor{
		Kind: mflow.NODE_KIND_PAYMENT,
		Fields: []FieldSpec{
			{Key: "paymentKind", Type: FieldString, Required: true, Enum: []string{mnode.PaymentCollect, mnode.PaymentIntent, mnode.PaymentQR, mnode.PaymentMandate, mnode.PaymentRefund}},
			{Key: "amount", Type: FieldAny, Required: true},
			{Key: "currency", Type: FieldString},
			{Key: "maxAmount", Type: FieldNumber},
			{Key: "recurrence", Type: FieldString},
			{Key: "description", Type: FieldString},
			{Key: "timeoutMs", Type: FieldNumber},
		},
		Ports: []mflow.EdgeHandle{mflow.HandleSuccess, mflow.HandleFailure},
		parse: wrap(mnode.ParsePayment),
	})
	return r
}
