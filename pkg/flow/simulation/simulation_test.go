package simulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JimGeek/Super/pkg/capability"
	"github.com/JimGeek/Super/pkg/capability/fakecap"
	"github.com/JimGeek/Super/pkg/flow/flowbuilder"
	"github.com/JimGeek/Super/pkg/flow/ledger"
	"github.com/JimGeek/Super/pkg/flow/runner"
	"github.com/JimGeek/Super/pkg/flow/simulation"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/logger/mocklogger"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/registry"
)

type harness struct {
	ctrl     *simulation.Controller
	scenario simulation.Scenario
	payment  *fakecap.Payment
	notify   *fakecap.Notification
}

func newHarness(t *testing.T, configure func(*fakecap.Payment)) *harness {
	t.Helper()
	caps, _, payment, notify := fakecap.NewSet()
	if configure != nil {
		configure(payment)
	}

	scenario := simulation.OrderPaymentScenario()
	builder := flowbuilder.New(registry.Default(), caps, capability.DefaultRetryPolicy(), mocklogger.NewMockLogger())
	clock := simulation.NewInstantClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	ctrl := simulation.NewController(scenario.Flow, builder, mocklogger.NewMockLogger(),
		simulation.WithClock(clock), simulation.WithBaseDelay(time.Millisecond))
	return &harness{ctrl: ctrl, scenario: scenario, payment: payment, notify: notify}
}

func recordFor(t *testing.T, led *ledger.Ledger, name string) ledger.StepRecord {
	t.Helper()
	for _, record := range led.Records() {
		if record.NodeName == name {
			return record
		}
	}
	t.Fatalf("no ledger record for node %q", name)
	return ledger.StepRecord{}
}

func TestPlayRunsScenarioToCompletion(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, h.scenario.Trigger))
	h.ctrl.Play()

	result, err := h.ctrl.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, runner.RunStateCompleted, result.State)
	assert.True(t, h.ctrl.Done())

	// Taken path: start, trigger, check, collect, confirm, done.
	assert.Equal(t, 6, result.Summary.Completed)
	// Untaken branch sealed: mark_cod, payment_failed_sms, failed.
	assert.Equal(t, 3, result.Summary.Skipped)
	assert.Zero(t, result.Summary.Failed)

	led := h.ctrl.Ledger()
	payRecord := recordFor(t, led, "collect_payment")
	assert.Equal(t, mflow.NODE_STATE_SUCCESS, payRecord.Status)
	assert.Equal(t, mflow.NODE_STATE_SKIPPED, recordFor(t, led, "mark_cod").Status)

	require.Len(t, h.payment.Calls(), 1)
	assert.Equal(t, 1250.0, h.payment.Calls()[0].Amount)
	require.Len(t, h.notify.Sent(), 1)
	assert.Contains(t, h.notify.Sent()[0].Message, "ORD-1042")
}

func TestDeclinedPaymentTakesFailureBranch(t *testing.T) {
	h := newHarness(t, func(p *fakecap.Payment) {
		p.RejectKind("collect", "insufficient funds")
	})
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, h.scenario.Trigger))
	h.ctrl.Play()

	result, err := h.ctrl.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, runner.RunStateFailed, result.State)

	led := h.ctrl.Ledger()
	payRecord := recordFor(t, led, "collect_payment")
	assert.Equal(t, mflow.NODE_STATE_SUCCESS, payRecord.Status)

	smsRecord := recordFor(t, led, "payment_failed_sms")
	assert.Equal(t, mflow.NODE_STATE_SUCCESS, smsRecord.Status)
	require.Len(t, h.notify.Sent(), 1)
	assert.Contains(t, h.notify.Sent()[0].Message, "insufficient funds")

	endRecord := recordFor(t, led, "failed")
	assert.Equal(t, mflow.NODE_STATE_FAILURE, endRecord.Status)

	// The untaken cash-on-delivery branch is still accounted for.
	assert.Equal(t, mflow.NODE_STATE_SKIPPED, recordFor(t, led, "mark_cod").Status)
}

func TestCancelledEndSealsUntakenBranch(t *testing.T) {
	flowID := idwrap.NewNow()
	mkNode := func(name string, kind mflow.NodeKind, config map[string]any) mflow.Node {
		return mflow.Node{ID: idwrap.NewNow(), FlowID: flowID, Name: name, NodeKind: kind, Config: config}
	}
	mkEdge := func(source, target mflow.Node, handle mflow.EdgeHandle) mflow.Edge {
		e := mflow.NewEdge(idwrap.NewNow(), source.ID, target.ID, handle)
		e.FlowID = flowID
		return e
	}

	start := mkNode("start", mflow.NODE_KIND_START, nil)
	check := mkNode("amount_check", mflow.NODE_KIND_CONDITION, map[string]any{
		"field": "order.amount", "operator": "greater_than", "value": 500,
	})
	collect := mkNode("collect_payment", mflow.NODE_KIND_PAYMENT, map[string]any{
		"paymentKind": "collect", "amount": "{{ order.amount }}",
	})
	done := mkNode("done", mflow.NODE_KIND_END, map[string]any{"resultType": "success"})
	aborted := mkNode("aborted", mflow.NODE_KIND_END, map[string]any{"resultType": "cancelled"})

	flow := &mflow.Flow{
		ID:      flowID,
		Name:    "small order abort",
		Version: "1",
		Status:  mflow.FLOW_STATUS_ACTIVE,
		Nodes:   []mflow.Node{start, check, collect, done, aborted},
		Edges: mflow.NewEdges(
			mkEdge(start, check, mflow.HandleUnspecified),
			mkEdge(check, collect, mflow.HandleTrue),
			mkEdge(check, aborted, mflow.HandleFalse),
			mkEdge(collect, done, mflow.HandleSuccess),
			mkEdge(collect, aborted, mflow.HandleFailure),
		),
	}

	caps, _, payment, _ := fakecap.NewSet()
	builder := flowbuilder.New(registry.Default(), caps, capability.DefaultRetryPolicy(), mocklogger.NewMockLogger())
	clock := simulation.NewInstantClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	ctrl := simulation.NewController(flow, builder, mocklogger.NewMockLogger(),
		simulation.WithClock(clock), simulation.WithBaseDelay(time.Millisecond))

	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx, map[string]any{"order": map[string]any{"amount": 150.0}}))
	ctrl.Play()

	result, err := ctrl.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, runner.RunStateCancelled, result.State)
	assert.Empty(t, payment.Calls())

	// The false branch won, so the payment node and the success end still
	// get skipped records.
	led := ctrl.Ledger()
	assert.Equal(t, mflow.NODE_STATE_SKIPPED, recordFor(t, led, "collect_payment").Status)
	assert.Equal(t, mflow.NODE_STATE_SKIPPED, recordFor(t, led, "done").Status)
	assert.Equal(t, mflow.NODE_STATE_CANCELED, recordFor(t, led, "aborted").Status)
	assert.Equal(t, 2, result.Summary.Completed)
	assert.Equal(t, 2, result.Summary.Skipped)
}

func TestStepModeAdvancesOneNodeAtATime(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, h.ctrl.Start(ctx, h.scenario.Trigger))

	steps := 0
	for !h.ctrl.Done() && steps < 30 {
		require.NoError(t, h.ctrl.StepAndWait(ctx))
		steps++
	}
	require.True(t, h.ctrl.Done())

	result := h.ctrl.Result()
	assert.Equal(t, runner.RunStateCompleted, result.State)
	assert.Equal(t, 6, result.Summary.Completed)
}

func TestJumpToStepPausesMidRun(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, h.ctrl.JumpToStep(ctx, h.scenario.Trigger, 3))
	assert.False(t, h.ctrl.Done())
	assert.Equal(t, 3, h.ctrl.Ledger().Summarize().Completed)

	// No payment yet; the run is paused before collect_payment executes.
	assert.Empty(t, h.payment.Calls())

	h.ctrl.Play()
	result, err := h.ctrl.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, runner.RunStateCompleted, result.State)
	assert.Len(t, h.payment.Calls(), 1)
}

func TestReplayProducesIdenticalStepSequence(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type step struct {
		name   string
		status mflow.NodeState
		output any
	}
	runOnce := func(t *testing.T) []step {
		h := newHarness(t, nil)
		require.NoError(t, h.ctrl.Start(ctx, h.scenario.Trigger))
		h.ctrl.Play()
		_, err := h.ctrl.Wait(ctx)
		require.NoError(t, err)

		var steps []step
		for _, record := range h.ctrl.Ledger().Records() {
			out := record.Output
			if record.NodeName == "order_placed" {
				// The trigger stamps wall-clock fired_at; every other
				// output must replay byte for byte.
				out = nil
			}
			steps = append(steps, step{name: record.NodeName, status: record.Status, output: out})
		}
		return steps
	}

	first := runOnce(t)
	second := runOnce(t)
	assert.Equal(t, first, second)

	var payOutput map[string]any
	for _, s := range first {
		if s.name == "collect_payment" && s.status == mflow.NODE_STATE_SUCCESS {
			payOutput, _ = s.output.(map[string]any)
		}
	}
	require.NotNil(t, payOutput)
	assert.NotEmpty(t, payOutput["transaction_ref"])
}

func TestResetAllowsRestart(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, h.scenario.Trigger))
	h.ctrl.Play()
	_, err := h.ctrl.Wait(ctx)
	require.NoError(t, err)

	require.Error(t, h.ctrl.Start(ctx, h.scenario.Trigger))

	h.ctrl.Reset()
	assert.False(t, h.ctrl.Done())
	assert.Nil(t, h.ctrl.Ledger())

	require.NoError(t, h.ctrl.Start(ctx, h.scenario.Trigger))
	h.ctrl.Play()
	result, err := h.ctrl.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, runner.RunStateCompleted, result.State)
}

func TestResetCancelsInFlightRun(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, h.scenario.Trigger))
	// Paused at the first node; reset must not hang.
	h.ctrl.Reset()
	assert.False(t, h.ctrl.Done())
}

func TestSetSpeedRejectsNonPositive(t *testing.T) {
	h := newHarness(t, nil)
	assert.Error(t, h.ctrl.SetSpeed(0))
	assert.Error(t, h.ctrl.SetSpeed(-1))
	assert.NoError(t, h.ctrl.SetSpeed(4))
}

func TestScenariosAreValid(t *testing.T) {
	for _, scenario := range simulation.Scenarios() {
		t.Run(scenario.Name, func(t *testing.T) {
			assert.NotEmpty(t, scenario.Name)
			require.NotNil(t, scenario.Flow)
			_, ok := scenario.Flow.StartNode()
			assert.True(t, ok)
			assert.NotEmpty(t, scenario.Trigger)
		})
	}
}

func TestDeliveryScenarioRuns(t *testing.T) {
	caps, action, _, notify := fakecap.NewSet()
	scenario := simulation.DeliveryUpdateScenario()
	action.Script("https://track.example.com/AWB123456", capability.ActionResult{
		StatusCode: 200,
		Body:       map[string]any{"eta": "2026-05-03"},
	})

	builder := flowbuilder.New(registry.Default(), caps, capability.DefaultRetryPolicy(), mocklogger.NewMockLogger())
	ctrl := simulation.NewController(scenario.Flow, builder, mocklogger.NewMockLogger(),
		simulation.WithClock(simulation.NewInstantClock(time.Now())), simulation.WithBaseDelay(time.Millisecond))

	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx, scenario.Trigger))
	ctrl.Play()

	result, err := ctrl.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, runner.RunStateCompleted, result.State)
	require.Len(t, notify.Sent(), 1)
	assert.Contains(t, notify.Sent()[0].Message, "2026-05-03")
}
