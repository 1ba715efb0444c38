// Package capability defines the outbound contracts a flow run depends on.
// Action, payment and notification nodes never talk to providers directly;
// they go through these interfaces so runs are testable and simulations can
// swap in deterministic fakes.
package capability

import "context"

// ActionRequest describes an outbound side effect, typically an HTTP call.
type ActionRequest struct {
	Kind    string
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// ActionResult carries the provider response back into the variable map.
type ActionResult struct {
	StatusCode int
	Body       any
	Headers    map[string]string
}

type ActionCapability interface {
	Execute(ctx context.Context, req ActionRequest) (ActionResult, error)
}

// PaymentRequest describes a UPI money movement.
type PaymentRequest struct {
	Kind        string // collect, intent, qr, mandate, refund
	Amount      float64
	Currency    string
	MaxAmount   float64 // mandate upper bound
	Recurrence  string  // mandate cadence
	Description string
	ReferenceID string
}

// PaymentResult reports the provider decision. OK false is a business
// rejection, not an error: the engine routes it out the failure port.
type PaymentResult struct {
	OK             bool
	TransactionRef string
	FailureReason  string
	Details        map[string]any
}

type PaymentCapability interface {
	Process(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// Notification describes a message to deliver on a channel.
type Notification struct {
	Channel    string // sms, email, push, whatsapp, webhook
	Recipients []string
	Message    string
}

type NotificationResult struct {
	DeliveryRef string
	Delivered   int
}

type NotificationCapability interface {
	Send(ctx context.Context, n Notification) (NotificationResult, error)
}

// Set bundles the capabilities a run executes against.
type Set struct {
	Action       ActionCapability
	Payment      PaymentCapability
	Notification NotificationCapability
}
