// Package simulation replays flows against fake capabilities under
// interactive control: play, pause, single-step, jump and speed scaling.
// Every simulated run produces the same step ledger a live run would.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JimGeek/Super/pkg/flow/flowbuilder"
	"github.com/JimGeek/Super/pkg/flow/ledger"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/flow/runner"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

type Mode int8

const (
	ModePaused Mode = iota
	ModePlaying
)

// RunResult is the terminal summary of one simulated run.
type RunResult struct {
	RunID   idwrap.IDWrap
	State   runner.RunState
	Summary ledger.Summary
	Err     error
}

// Controller drives one flow through simulated runs. It is not safe to
// share a Controller across flows; build one per flow.
type Controller struct {
	flow      *mflow.Flow
	builder   *flowbuilder.Builder
	logger    *slog.Logger
	clock     Clock
	baseDelay time.Duration
	timeout   time.Duration

	mu       sync.Mutex
	mode     Mode
	speed    float64
	resumeCh chan struct{}
	advance  chan struct{}
	progress chan struct{}

	runMu   sync.Mutex
	started bool
	runID   idwrap.IDWrap
	led     *ledger.Ledger
	state   runner.RunState
	runErr  error
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option tweaks controller construction.
type Option func(*Controller)

// WithClock swaps the pacing clock, e.g. an InstantClock for tests.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithBaseDelay sets the pause between nodes at 1x speed.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Controller) { c.baseDelay = d }
}

// WithTimeout sets the per-node default timeout for simulated runs.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

func NewController(flow *mflow.Flow, builder *flowbuilder.Builder, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		flow:      flow,
		builder:   builder,
		logger:    logger,
		clock:     RealClock{},
		baseDelay: 250 * time.Millisecond,
		speed:     1,
		mode:      ModePaused,
		resumeCh:  make(chan struct{}),
		advance:   make(chan struct{}, 1),
		progress:  make(chan struct{}, 1),
		state:     runner.RunStateNotStarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches a run with the given trigger payload merged into the flow
// variables. The run begins in the controller's current mode; call Play or
// Step to advance a paused run.
func (c *Controller) Start(ctx context.Context, triggerPayload map[string]any) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.started {
		return errors.New("simulation already started, reset first")
	}

	runID := idwrap.NewNow()
	flowRunner, err := c.builder.BuildRunner(c.flow, runID, c.timeout)
	if err != nil {
		return err
	}
	for id, inner := range flowRunner.FlowNodeMap {
		flowRunner.FlowNodeMap[id] = &pacedNode{inner: inner, ctrl: c}
	}

	baseVars := mflow.SeedVars(c.flow.Variables)
	for k, v := range triggerPayload {
		baseVars[k] = v
	}

	runCtx, cancelFn := context.WithCancel(ctx)
	led := ledger.NewWithClock(runID, c.flow.ID, c.clock.Now)

	c.started = true
	c.runID = runID
	c.led = led
	c.state = runner.RunStateRunning
	c.runErr = nil
	c.cancel = cancelFn
	c.done = make(chan struct{})

	statusChan := make(chan runner.FlowNodeStatus, 16)
	flowStatusChan := make(chan runner.FlowStatus, 4)
	done := c.done

	applied := make(chan struct{})

	go func() {
		err := flowRunner.Run(runCtx, statusChan, flowStatusChan, baseVars)

		// The ledger must hold every status, trailing seal records
		// included, before the run reads as done.
		<-applied

		c.runMu.Lock()
		c.runErr = err
		switch {
		case runner.IsCancellationError(err):
			c.state = runner.RunStateCancelled
		case err != nil:
			c.state = runner.RunStateFailed
		default:
			c.state = runner.RunStateCompleted
		}
		c.runMu.Unlock()
		close(done)
	}()

	go func() {
		defer close(applied)
		for status := range statusChan {
			led.Apply(status)
			if status.State != mflow.NODE_STATE_RUNNING {
				c.signalProgress()
			}
			c.logger.Debug("simulation step",
				slog.String("run_id", runID.String()),
				slog.String("node", status.Name),
				slog.String("state", mflow.StringNodeState(status.State)))
		}
		c.signalProgress()
	}()
	go func() {
		for range flowStatusChan {
		}
	}()

	return nil
}

// Play lets the run advance continuously, pacing nodes by the base delay
// scaled with the speed multiplier.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModePlaying {
		return
	}
	c.mode = ModePlaying
	close(c.resumeCh)
	c.resumeCh = make(chan struct{})
}

// Pause holds the run before its next node.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModePaused
}

// Step releases exactly one node while paused.
func (c *Controller) Step() {
	select {
	case c.advance <- struct{}{}:
	default:
	}
}

// StepAndWait releases one node and blocks until it reaches a terminal
// state or the run finishes.
func (c *Controller) StepAndWait(ctx context.Context) error {
	c.runMu.Lock()
	done := c.done
	c.runMu.Unlock()
	if done == nil {
		return errors.New("simulation not started")
	}

	c.drainProgress()
	c.Step()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	case <-c.progress:
		return nil
	}
}

// SetSpeed adjusts the playback multiplier. 2 runs twice as fast as 1.
func (c *Controller) SetSpeed(multiplier float64) error {
	if multiplier <= 0 {
		return fmt.Errorf("speed multiplier must be positive, got %v", multiplier)
	}
	c.mu.Lock()
	c.speed = multiplier
	c.mu.Unlock()
	return nil
}

// Reset aborts any in-flight run and returns the controller to not started.
func (c *Controller) Reset() {
	c.runMu.Lock()
	cancelFn := c.cancel
	done := c.done
	c.runMu.Unlock()

	if cancelFn != nil {
		cancelFn()
		<-done
	}

	c.runMu.Lock()
	c.started = false
	c.runID = idwrap.IDWrap{}
	c.led = nil
	c.state = runner.RunStateNotStarted
	c.runErr = nil
	c.cancel = nil
	c.done = nil
	c.runMu.Unlock()

	c.Pause()
	c.drainAdvance()
	c.drainProgress()
}

// JumpToStep restarts the run and executes exactly n nodes, leaving the
// simulation paused at that point.
func (c *Controller) JumpToStep(ctx context.Context, triggerPayload map[string]any, n int) error {
	c.Reset()
	if err := c.Start(ctx, triggerPayload); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if c.Done() {
			break
		}
		if err := c.StepAndWait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until the current run terminates and returns its result.
func (c *Controller) Wait(ctx context.Context) (RunResult, error) {
	c.runMu.Lock()
	done := c.done
	c.runMu.Unlock()
	if done == nil {
		return RunResult{}, errors.New("simulation not started")
	}

	select {
	case <-ctx.Done():
		return RunResult{}, ctx.Err()
	case <-done:
	}
	return c.Result(), nil
}

// Result snapshots the current run state.
func (c *Controller) Result() RunResult {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	result := RunResult{
		RunID: c.runID,
		State: c.state,
		Err:   c.runErr,
	}
	if c.led != nil {
		result.Summary = c.led.Summarize()
	}
	return result
}

// Ledger exposes the current run's step records.
func (c *Controller) Ledger() *ledger.Ledger {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.led
}

// Done reports whether the current run reached a terminal state.
func (c *Controller) Done() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Controller) signalProgress() {
	select {
	case c.progress <- struct{}{}:
	default:
	}
}

func (c *Controller) drainProgress() {
	select {
	case <-c.progress:
	default:
	}
}

func (c *Controller) drainAdvance() {
	select {
	case <-c.advance:
	default:
	}
}

// waitTurn blocks until the controller allows the next node to run.
func (c *Controller) waitTurn(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.mode == ModePlaying {
			delay := time.Duration(float64(c.baseDelay) / c.speed)
			c.mu.Unlock()
			return c.clock.Sleep(ctx, delay)
		}
		resume := c.resumeCh
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.advance:
			return nil
		case <-resume:
		}
	}
}

// pacedNode defers to the controller's gate before executing the wrapped
// node, which is how pause, step and speed control reach the engine.
type pacedNode struct {
	inner node.FlowNode
	ctrl  *Controller
}

func (p *pacedNode) GetID() idwrap.IDWrap {
	return p.inner.GetID()
}

func (p *pacedNode) GetName() string {
	return p.inner.GetName()
}

func (p *pacedNode) RunSync(ctx context.Context, req *node.FlowNodeRequest) node.FlowNodeResult {
	if err := p.ctrl.waitTurn(ctx); err != nil {
		return node.FlowNodeResult{Err: err}
	}
	return p.inner.RunSync(ctx, req)
}

func (p *pacedNode) RunAsync(ctx context.Context, req *node.FlowNodeRequest, resultChan chan node.FlowNodeResult) {
	if err := p.ctrl.waitTurn(ctx); err != nil {
		resultChan <- node.FlowNodeResult{Err: err}
		return
	}
	p.inner.RunAsync(ctx, req, resultChan)
}
