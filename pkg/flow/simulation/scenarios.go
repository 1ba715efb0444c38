package simulation

import (
	"time"

	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

// Scenario is a ready-to-simulate flow plus the trigger payload that
// admits it.
type Scenario struct {
	Name    string
	Flow    *mflow.Flow
	Trigger map[string]any
}

// OrderPaymentScenario models the common checkout automation: an order
// event branches on amount, collects a UPI payment for large orders and
// notifies the customer either way. Small orders fall through to a
// cash-on-delivery note, and both branches converge on the same
// confirmation step.
func OrderPaymentScenario() Scenario {
	flowID := idwrap.NewNow()

	start := graphNode(flowID, "start", mflow.NODE_KIND_START, nil)
	trigger := graphNode(flowID, "order_placed", mflow.NODE_KIND_TRIGGER, map[string]any{
		"triggerKind": "event",
		"event":       "order.placed",
	})
	check := graphNode(flowID, "amount_check", mflow.NODE_KIND_CONDITION, map[string]any{
		"field":    "order.amount",
		"operator": "greater_than",
		"value":    500,
	})
	collect := graphNode(flowID, "collect_payment", mflow.NODE_KIND_PAYMENT, map[string]any{
		"paymentKind": "collect",
		"amount":      "{{ order.amount }}",
		"description": "Order {{ order.id }}",
	})
	codNote := graphNode(flowID, "mark_cod", mflow.NODE_KIND_DATA, map[string]any{
		"mode":  "constant",
		"key":   "payment_mode",
		"value": "cod",
	})
	paymentFailed := graphNode(flowID, "payment_failed_sms", mflow.NODE_KIND_NOTIFICATION, map[string]any{
		"channel":    "sms",
		"template":   "Payment for order {{ order.id }} failed: {{ collect_payment.failure_reason }}",
		"recipients": []any{"{{ customer.phone }}"},
	})
	confirm := graphNode(flowID, "confirm_sms", mflow.NODE_KIND_NOTIFICATION, map[string]any{
		"channel":    "sms",
		"template":   "Order {{ order.id }} confirmed. Amount: {{ order.amount }}",
		"recipients": []any{"{{ customer.phone }}"},
	})
	endOK := graphNode(flowID, "done", mflow.NODE_KIND_END, map[string]any{
		"resultType":  "success",
		"returnValue": "{{ order.id }}",
	})
	endFail := graphNode(flowID, "failed", mflow.NODE_KIND_END, map[string]any{
		"resultType": "failure",
	})

	edges := mflow.NewEdges(
		graphEdge(flowID, start, trigger, mflow.HandleUnspecified),
		graphEdge(flowID, trigger, check, mflow.HandleUnspecified),
		graphEdge(flowID, check, collect, mflow.HandleTrue),
		graphEdge(flowID, check, codNote, mflow.HandleFalse),
		graphEdge(flowID, collect, confirm, mflow.HandleSuccess),
		graphEdge(flowID, collect, paymentFailed, mflow.HandleFailure),
		graphEdge(flowID, codNote, confirm, mflow.HandleUnspecified),
		graphEdge(flowID, paymentFailed, endFail, mflow.HandleUnspecified),
		graphEdge(flowID, confirm, endOK, mflow.HandleUnspecified),
	)

	return Scenario{
		Name: "order_payment",
		Flow: &mflow.Flow{
			ID:      flowID,
			Name:    "Order payment collection",
			Version: "1",
			Status:  mflow.FLOW_STATUS_ACTIVE,
			Tags:    []string{"orders", "payments"},
			Nodes: []mflow.Node{
				start, trigger, check, collect, codNote,
				paymentFailed, confirm, endOK, endFail,
			},
			Edges:     edges,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		Trigger: map[string]any{
			"order": map[string]any{
				"id":     "ORD-1042",
				"amount": 1250.0,
			},
			"customer": map[string]any{
				"phone": "+919810012345",
			},
		},
	}
}

// DeliveryUpdateScenario models a lighter automation: a shipment event
// fetches tracking details over HTTP and pushes an update to the customer.
func DeliveryUpdateScenario() Scenario {
	flowID := idwrap.NewNow()

	start := graphNode(flowID, "start", mflow.NODE_KIND_START, nil)
	trigger := graphNode(flowID, "shipment_update", mflow.NODE_KIND_TRIGGER, map[string]any{
		"triggerKind": "webhook",
		"event":       "shipment.updated",
	})
	fetch := graphNode(flowID, "fetch_tracking", mflow.NODE_KIND_ACTION, map[string]any{
		"method":    "GET",
		"url":       "https://track.example.com/{{ shipment.awb }}",
		"outputKey": "tracking",
	})
	present := graphNode(flowID, "has_eta", mflow.NODE_KIND_CONDITION, map[string]any{
		"field":    "tracking.body.eta",
		"operator": "exists",
	})
	notify := graphNode(flowID, "push_update", mflow.NODE_KIND_NOTIFICATION, map[string]any{
		"channel":    "push",
		"template":   "Your order is on the way. ETA: {{ tracking.body.eta }}",
		"recipients": []any{"{{ customer.device }}"},
	})
	endOK := graphNode(flowID, "done", mflow.NODE_KIND_END, map[string]any{
		"resultType": "success",
	})
	endNoEta := graphNode(flowID, "no_eta", mflow.NODE_KIND_END, map[string]any{
		"resultType": "success",
	})

	edges := mflow.NewEdges(
		graphEdge(flowID, start, trigger, mflow.HandleUnspecified),
		graphEdge(flowID, trigger, fetch, mflow.HandleUnspecified),
		graphEdge(flowID, fetch, present, mflow.HandleUnspecified),
		graphEdge(flowID, present, notify, mflow.HandleTrue),
		graphEdge(flowID, present, endNoEta, mflow.HandleFalse),
		graphEdge(flowID, notify, endOK, mflow.HandleUnspecified),
	)

	return Scenario{
		Name: "delivery_update",
		Flow: &mflow.Flow{
			ID:        flowID,
			Name:      "Delivery status update",
			Version:   "1",
			Status:    mflow.FLOW_STATUS_ACTIVE,
			Tags:      []string{"logistics"},
			Nodes:     []mflow.Node{start, trigger, fetch, present, notify, endOK, endNoEta},
			Edges:     edges,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		Trigger: map[string]any{
			"shipment": map[string]any{"awb": "AWB123456"},
			"customer": map[string]any{"device": "device-token-1"},
		},
	}
}

// Scenarios lists the bundled fixtures by name.
func Scenarios() []Scenario {
	return []Scenario{
		OrderPaymentScenario(),
		DeliveryUpdateScenario(),
	}
}

func graphNode(flowID idwrap.IDWrap, name string, kind mflow.NodeKind, config map[string]any) mflow.Node {
	return mflow.Node{
		ID:       idwrap.NewNow(),
		FlowID:   flowID,
		Name:     name,
		NodeKind: kind,
		Config:   config,
	}
}

func graphEdge(flowID idwrap.IDWrap, source, target mflow.Node, handle mflow.EdgeHandle) mflow.Edge {
	e := mflow.NewEdge(idwrap.NewNow(), source.ID, target.ID, handle)
	e.FlowID = flowID
	return e
}
