// Package ledger is the step-by-step audit trail of a flow run. It consumes
// node status transitions and keeps one record per executed node, plus
// skipped records for the paths the run never took.
package ledger

import (
	"sync"
	"time"

	"github.com/JimGeek/Super/pkg/flow/runner"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

// StepRecord is one node's slot in the run's audit trail.
type StepRecord struct {
	ID          idwrap.IDWrap
	RunID       idwrap.IDWrap
	FlowID      idwrap.IDWrap
	NodeID      idwrap.IDWrap
	ExecutionID idwrap.IDWrap
	NodeName    string
	Seq         int
	Status      mflow.NodeState
	Attempt     int
	Input       any
	Output      any
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// RunRecord summarizes a whole run for storage.
type RunRecord struct {
	ID          idwrap.IDWrap
	FlowID      idwrap.IDWrap
	FlowVersion string
	State       runner.RunState
	StartedAt   time.Time
	EndedAt     time.Time
	Error       string
}

// Ledger accumulates step records for a single run. Safe for concurrent use;
// the runner's status stream and readers may overlap.
type Ledger struct {
	mu      sync.RWMutex
	runID   idwrap.IDWrap
	flowID  idwrap.IDWrap
	seq     int
	records []StepRecord
	open    map[idwrap.IDWrap]int // nodeID -> index of its running record
	now     func() time.Time
}

func New(runID, flowID idwrap.IDWrap) *Ledger {
	return &Ledger{
		runID:  runID,
		flowID: flowID,
		open:   make(map[idwrap.IDWrap]int),
		now:    time.Now,
	}
}

// NewWithClock pins record timestamps for deterministic replay.
func NewWithClock(runID, flowID idwrap.IDWrap, now func() time.Time) *Ledger {
	l := New(runID, flowID)
	l.now = now
	return l
}

// Apply folds one status transition into the ledger. A RUNNING status opens
// a record; a terminal status closes the open record for that node. SKIPPED
// arrives without a preceding RUNNING and is recorded directly.
func (l *Ledger) Apply(status runner.FlowNodeStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch status.State {
	case mflow.NODE_STATE_RUNNING:
		l.seq++
		l.records = append(l.records, StepRecord{
			ID:          idwrap.NewNow(),
			RunID:       l.runID,
			FlowID:      l.flowID,
			NodeID:      status.NodeID,
			ExecutionID: status.ExecutionID,
			NodeName:    status.Name,
			Seq:         l.seq,
			Status:      mflow.NODE_STATE_RUNNING,
			Attempt:     1,
			StartedAt:   l.now(),
		})
		l.open[status.NodeID] = len(l.records) - 1

	case mflow.NODE_STATE_SKIPPED:
		l.seq++
		l.records = append(l.records, StepRecord{
			ID:       idwrap.NewNow(),
			RunID:    l.runID,
			FlowID:   l.flowID,
			NodeID:   status.NodeID,
			NodeName: status.Name,
			Seq:      l.seq,
			Status:   mflow.NODE_STATE_SKIPPED,
		})

	default:
		idx, ok := l.open[status.NodeID]
		if !ok {
			return
		}
		delete(l.open, status.NodeID)

		record := &l.records[idx]
		record.Status = status.State
		record.Input = status.InputData
		record.Output = status.OutputData
		record.Duration = status.RunDuration
		record.CompletedAt = l.now()
		if status.Attempt > 0 {
			record.Attempt = status.Attempt
		}
		if status.Error != nil {
			record.Error = status.Error.Error()
		}
	}
}

// Records returns the step records in sequence order.
func (l *Ledger) Records() []StepRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]StepRecord, len(l.records))
	copy(out, l.records)
	return out
}

// RecordForNode returns the latest record for the node, if any.
func (l *Ledger) RecordForNode(nodeID idwrap.IDWrap) (StepRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].NodeID == nodeID {
			return l.records[i], true
		}
	}
	return StepRecord{}, false
}

// Summary tallies records by terminal status.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	Skipped   int
	Cancelled int
	Running   int
}

// CompletionPercent reports the share of recorded steps that finished
// successfully, from 0 to 100. An empty ledger reports 0.
func (s Summary) CompletionPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

func (l *Ledger) Summarize() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s Summary
	s.Total = len(l.records)
	for _, record := range l.records {
		switch record.Status {
		case mflow.NODE_STATE_SUCCESS:
			s.Completed++
		case mflow.NODE_STATE_FAILURE:
			s.Failed++
		case mflow.NODE_STATE_SKIPPED:
			s.Skipped++
		case mflow.NODE_STATE_CANCELED:
			s.Cancelled++
		case mflow.NODE_STATE_RUNNING:
			s.Running++
		}
	}
	return s
}
