// Package flowlocalrunner walks an in-memory flow graph node by node.
// Branching is exclusive, so the frontier advances sequentially: a node that
// two branches converge on runs once, on first arrival, and later arrivals
// are recorded as skipped. Nodes never reached by the taken path are sealed
// as skipped when the run terminates, whatever its outcome.
package flowlocalrunner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JimGeek/Super/pkg/capability"
	"github.com/JimGeek/Super/pkg/flow/node"
	"github.com/JimGeek/Super/pkg/flow/runner"
	"github.com/JimGeek/Super/pkg/flow/tracking"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

type FlowLocalRunner struct {
	ID          idwrap.IDWrap
	FlowID      idwrap.IDWrap
	FlowNodeMap map[idwrap.IDWrap]node.FlowNode

	EdgesMap    mflow.EdgesMap
	StartNodeID idwrap.IDWrap
	Timeout     time.Duration
}

// TimeoutOverrider lets a node bound its own execution tighter than the
// flow-level default.
type TimeoutOverrider interface {
	TimeoutOverride() (time.Duration, bool)
}

func CreateFlowRunner(id, flowID, startNodeID idwrap.IDWrap, flowNodeMap map[idwrap.IDWrap]node.FlowNode, edgesMap mflow.EdgesMap, timeout time.Duration) *FlowLocalRunner {
	return &FlowLocalRunner{
		ID:          id,
		FlowID:      flowID,
		StartNodeID: startNodeID,
		FlowNodeMap: flowNodeMap,
		EdgesMap:    edgesMap,
		Timeout:     timeout,
	}
}

func (r FlowLocalRunner) Run(ctx context.Context, flowNodeStatusChan chan runner.FlowNodeStatus, flowStatusChan chan runner.FlowStatus, baseVars map[string]any) error {
	defer close(flowNodeStatusChan)
	defer close(flowStatusChan)

	logWorkaround := func(status runner.FlowNodeStatus) {
		flowNodeStatusChan <- status
	}

	if baseVars == nil {
		baseVars = make(map[string]any)
	}

	req := &node.FlowNodeRequest{
		VarMap:          baseVars,
		ReadWriteLock:   &sync.RWMutex{},
		NodeMap:         r.FlowNodeMap,
		EdgeSourceMap:   r.EdgesMap,
		LogPushFunc:     node.LogPushFunc(logWorkaround),
		Timeout:         r.Timeout,
		VariableTracker: tracking.NewVariableTracker(),
	}

	flowStatusChan <- runner.FlowStatusStarting
	flowStatusChan <- runner.FlowStatusRunning

	visited, err := RunNodeSync(ctx, r.StartNodeID, req, logWorkaround)

	// Every terminal state seals the untaken branches, so a failed or
	// cancelled run still accounts for the whole graph.
	sealUnreached(r.FlowNodeMap, visited, logWorkaround)

	switch {
	case runner.IsCancellationError(err):
		flowStatusChan <- runner.FlowStatusCancelled
	case err != nil:
		flowStatusChan <- runner.FlowStatusFailed
	default:
		flowStatusChan <- runner.FlowStatusSuccess
	}
	return err
}

type nodeTiming struct {
	StartTime time.Time
}

// RunNodeSync walks the graph from startNodeID until the frontier drains or
// a node fails. It returns the set of node IDs that produced a status.
func RunNodeSync(ctx context.Context, startNodeID idwrap.IDWrap, req *node.FlowNodeRequest,
	statusLogFunc node.LogPushFunc,
) (map[idwrap.IDWrap]bool, error) {
	queue := []idwrap.IDWrap{startNodeID}
	visited := make(map[idwrap.IDWrap]bool)

	for len(queue) != 0 {
		flowNodeID := queue[0]
		queue = queue[1:]

		currentNode, ok := req.NodeMap[flowNodeID]
		if !ok {
			return visited, fmt.Errorf("%w: %s", node.ErrNodeNotFound, flowNodeID)
		}

		if visited[flowNodeID] {
			// Second arrival at a convergence point. The node already ran
			// with the first branch's variables.
			statusLogFunc(runner.FlowNodeStatus{
				NodeID: flowNodeID,
				Name:   currentNode.GetName(),
				State:  mflow.NODE_STATE_SKIPPED,
			})
			continue
		}
		visited[flowNodeID] = true

		if err := ctx.Err(); err != nil {
			statusLogFunc(runner.FlowNodeStatus{
				NodeID: flowNodeID,
				Name:   currentNode.GetName(),
				State:  mflow.NODE_STATE_CANCELED,
				Error:  err,
			})
			return visited, err
		}

		executionID := idwrap.NewNow()
		req.ExecutionID = executionID
		req.VariableTracker.Reset()

		status := runner.FlowNodeStatus{
			ExecutionID: executionID,
			NodeID:      flowNodeID,
			Name:        currentNode.GetName(),
			State:       mflow.NODE_STATE_RUNNING,
		}
		statusLogFunc(status)

		timing := nodeTiming{StartTime: time.Now()}
		result := executeNode(ctx, currentNode, req)
		status.RunDuration = time.Since(timing.StartTime)
		status.InputData = req.VariableTracker.ReadVarsAsTree()

		if result.Err != nil {
			if runner.IsCancellationError(result.Err) {
				status.State = mflow.NODE_STATE_CANCELED
			} else {
				status.State = mflow.NODE_STATE_FAILURE
			}
			status.Error = result.Err
			status.Attempt = attemptsFromOutput(req, status.Name)
			statusLogFunc(status)
			return visited, result.Err
		}

		status.State = mflow.NODE_STATE_SUCCESS
		status.Error = nil
		if outputData, err := node.ReadVarRaw(req, status.Name); err == nil {
			status.OutputData = outputData
		}
		status.Attempt = attemptsFromOutput(req, status.Name)
		statusLogFunc(status)

		queue = append(queue, result.NextNodeID...)
	}

	return visited, nil
}

// executeNode bounds the node with its own timeout when one applies,
// falling back to the flow default.
func executeNode(ctx context.Context, n node.FlowNode, req *node.FlowNodeRequest) node.FlowNodeResult {
	timeout := req.Timeout
	if overrider, ok := n.(TimeoutOverrider); ok {
		if d, set := overrider.TimeoutOverride(); set {
			timeout = d
		}
	}
	if timeout <= 0 {
		return n.RunSync(ctx, req)
	}

	ctxTimed, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultChan := make(chan node.FlowNodeResult, 1)
	go n.RunAsync(ctxTimed, req, resultChan)

	select {
	case <-ctxTimed.Done():
		err := ctxTimed.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			// A blown deadline is a timeout in the capability taxonomy.
			// Caller cancellation passes through untouched.
			err = capability.NewTimeoutError(n.GetName(), err)
		}
		return node.FlowNodeResult{Err: err}
	case result := <-resultChan:
		return result
	}
}

// sealUnreached records a skipped status for every node the taken path
// never visited, so the ledger accounts for the whole graph.
func sealUnreached(nodeMap map[idwrap.IDWrap]node.FlowNode, visited map[idwrap.IDWrap]bool, statusLogFunc node.LogPushFunc) {
	unreached := make([]idwrap.IDWrap, 0, len(nodeMap))
	for id := range nodeMap {
		if !visited[id] {
			unreached = append(unreached, id)
		}
	}
	slices.SortFunc(unreached, idwrap.IDWrap.Compare)

	for _, id := range unreached {
		statusLogFunc(runner.FlowNodeStatus{
			NodeID: id,
			Name:   nodeMap[id].GetName(),
			State:  mflow.NODE_STATE_SKIPPED,
		})
	}
}

func attemptsFromOutput(req *node.FlowNodeRequest, name string) int {
	raw, err := node.ReadNodeVar(req, name, "attempts")
	if err != nil {
		return 1
	}
	if attempts, ok := raw.(int); ok {
		return attempts
	}
	return 1
}
