package runner

import (
	"context"
	"time"

	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

type FlowRunner interface {
	Run(context.Context, chan FlowNodeStatus, chan FlowStatus) error
}

// RunState is the lifecycle of a single flow run.
type RunState int8

const (
	RunStateNotStarted RunState = iota
	RunStateRunning
	RunStateCompleted
	RunStateFailed
	RunStateCancelled
)

func (s RunState) String() string {
	return [...]string{"not_started", "running", "completed", "failed", "cancelled"}[s]
}

// IsRunStateDone reports whether the run reached a terminal state.
func IsRunStateDone(s RunState) bool {
	return s == RunStateCompleted || s == RunStateFailed || s == RunStateCancelled
}

// FlowStatus is streamed once per run-level transition.
type FlowStatus int8

const (
	FlowStatusStarting FlowStatus = iota
	FlowStatusRunning
	FlowStatusSuccess
	FlowStatusFailed
	FlowStatusCancelled
)

func FlowStatusString(f FlowStatus) string {
	return [...]string{"Starting", "Running", "Success", "Failed", "Cancelled"}[f]
}

func IsFlowStatusDone(f FlowStatus) bool {
	return f == FlowStatusSuccess || f == FlowStatusFailed || f == FlowStatusCancelled
}

// FlowNodeStatus is streamed on every node state transition. One RUNNING and
// one terminal status per executed node, plus a single SKIPPED status for
// nodes sealed off by branching.
type FlowNodeStatus struct {
	ExecutionID idwrap.IDWrap
	NodeID      idwrap.IDWrap
	Name        string
	State       mflow.NodeState
	Attempt     int
	OutputData  any
	InputData   any
	RunDuration time.Duration
	Error       error
}
