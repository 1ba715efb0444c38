// Package fakecap provides deterministic in-memory capability fakes used by
// the simulator and by tests. Every call is recorded, results are scriptable
// per URL or payment kind, and failures can be injected one call at a time.
package fakecap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JimGeek/Super/pkg/capability"
)

// Action is a scriptable ActionCapability.
type Action struct {
	mu       sync.Mutex
	calls    []capability.ActionRequest
	results  map[string]capability.ActionResult // by URL
	failNext []error
}

func NewAction() *Action {
	return &Action{results: make(map[string]capability.ActionResult)}
}

// Script sets the result returned for calls to the given URL.
func (a *Action) Script(url string, res capability.ActionResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[url] = res
}

// FailNext queues an error for the next call, ahead of any scripted result.
func (a *Action) FailNext(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext = append(a.failNext, err)
}

func (a *Action) Execute(ctx context.Context, req capability.ActionRequest) (capability.ActionResult, error) {
	if err := ctx.Err(); err != nil {
		return capability.ActionResult{}, capability.NewTimeoutError("action", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, req)

	if len(a.failNext) > 0 {
		err := a.failNext[0]
		a.failNext = a.failNext[1:]
		return capability.ActionResult{}, err
	}
	if res, ok := a.results[req.URL]; ok {
		return res, nil
	}
	return capability.ActionResult{StatusCode: 200, Body: map[string]any{"ok": true}}, nil
}

// Calls returns every request seen so far.
func (a *Action) Calls() []capability.ActionRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]capability.ActionRequest, len(a.calls))
	copy(out, a.calls)
	return out
}

// Payment is a scriptable PaymentCapability. By default every request
// succeeds, and transaction references are minted from a call counter so a
// replayed run produces the same references.
type Payment struct {
	mu       sync.Mutex
	calls    []capability.PaymentRequest
	rejects  map[string]string // kind -> failure reason
	failNext []error
	seq      int
}

func NewPayment() *Payment {
	return &Payment{rejects: make(map[string]string)}
}

// RejectKind makes every request of the given payment kind come back
// declined with the reason. The call itself still succeeds.
func (p *Payment) RejectKind(kind, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejects[kind] = reason
}

// FailNext queues a transport-level error for the next call.
func (p *Payment) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = append(p.failNext, err)
}

func (p *Payment) Process(ctx context.Context, req capability.PaymentRequest) (capability.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return capability.PaymentResult{}, capability.NewTimeoutError("payment", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)

	if len(p.failNext) > 0 {
		err := p.failNext[0]
		p.failNext = p.failNext[1:]
		return capability.PaymentResult{}, err
	}
	if req.Amount < 0 {
		return capability.PaymentResult{}, capability.NewRejectedError("payment",
			fmt.Errorf("negative amount %.2f", req.Amount))
	}
	if reason, ok := p.rejects[req.Kind]; ok {
		return capability.PaymentResult{OK: false, FailureReason: reason}, nil
	}
	p.seq++
	return capability.PaymentResult{
		OK:             true,
		TransactionRef: stableRef("txn", p.seq),
		Details: map[string]any{
			"kind":     req.Kind,
			"amount":   req.Amount,
			"currency": req.Currency,
		},
	}, nil
}

func (p *Payment) Calls() []capability.PaymentRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capability.PaymentRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

// Notification is a NotificationCapability that records sends.
type Notification struct {
	mu       sync.Mutex
	sent     []capability.Notification
	failNext []error
	seq      int
}

func NewNotification() *Notification {
	return &Notification{}
}

func (n *Notification) FailNext(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failNext = append(n.failNext, err)
}

func (n *Notification) Send(ctx context.Context, msg capability.Notification) (capability.NotificationResult, error) {
	if err := ctx.Err(); err != nil {
		return capability.NotificationResult{}, capability.NewTimeoutError("notification", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.failNext) > 0 {
		err := n.failNext[0]
		n.failNext = n.failNext[1:]
		return capability.NotificationResult{}, err
	}
	if len(msg.Recipients) == 0 {
		return capability.NotificationResult{}, capability.NewRejectedError("notification",
			errors.New("no recipients"))
	}
	n.sent = append(n.sent, msg)
	n.seq++
	return capability.NotificationResult{
		DeliveryRef: stableRef("msg", n.seq),
		Delivered:   len(msg.Recipients),
	}, nil
}

// stableRef derives the reference for the seq-th call of a fake. The value
// for a given prefix and position never changes, so replaying the same call
// sequence against a fresh fake yields identical outputs.
func stableRef(prefix string, seq int) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s-%d", prefix, seq)))
	return prefix + "_" + id.String()
}

// Sent returns every notification delivered so far.
func (n *Notification) Sent() []capability.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]capability.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

// NewSet bundles fresh fakes into a capability set.
func NewSet() (capability.Set, *Action, *Payment, *Notification) {
	action := NewAction()
	payment := NewPayment()
	notification := NewNotification()
	return capability.Set{
		Action:       action,
		Payment:      payment,
		Notification: notification,
	}, action, payment, notification
}
