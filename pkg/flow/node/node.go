package node

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JimGeek/Super/pkg/flow/runner"
	"github.com/JimGeek/Super/pkg/flow/tracking"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

var ErrNodeNotFound = errors.New("node not found")

type FlowNode interface {
	GetID() idwrap.IDWrap
	GetName() string

	RunSync(ctx context.Context, req *FlowNodeRequest) FlowNodeResult
	RunAsync(ctx context.Context, req *FlowNodeRequest, resultChan chan FlowNodeResult)
}

// FlowNodeRequest carries the shared run state into a node execution.
// VarMap access always goes through ReadWriteLock.
type FlowNodeRequest struct {
	VarMap           map[string]any
	ReadWriteLock    *sync.RWMutex
	NodeMap          map[idwrap.IDWrap]FlowNode
	EdgeSourceMap    mflow.EdgesMap
	Timeout          time.Duration
	LogPushFunc      LogPushFunc
	VariableTracker  *tracking.VariableTracker
	ExecutionID      idwrap.IDWrap
}

type LogPushFunc func(status runner.FlowNodeStatus)

type FlowNodeResult struct {
	NextNodeID []idwrap.IDWrap
	Err        error
}

var (
	ErrVarNodeNotFound = errors.New("node output not found")
	ErrVarKeyNotFound  = errors.New("key not found")
)

// MissingVariableError is returned when a node references a variable that is
// not present in the run's variable map.
type MissingVariableError struct {
	NodeName string
	Path     string
}

func (e *MissingVariableError) Error() string {
	return "node " + e.NodeName + ": variable " + e.Path + " not found"
}

// DeepCopyVarMap snapshots the VarMap under the read lock so callers can
// inspect it without racing the run.
func DeepCopyVarMap(req *FlowNodeRequest) map[string]any {
	req.ReadWriteLock.RLock()
	defer req.ReadWriteLock.RUnlock()

	return deepCopyMap(req.VarMap)
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = DeepCopyValue(v)
	}
	return result
}

func DeepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = DeepCopyValue(item)
		}
		return result
	default:
		return val
	}
}

// WriteNodeVar stores a single key under the node's output map.
func WriteNodeVar(a *FlowNodeRequest, name string, key string, v any) error {
	a.ReadWriteLock.Lock()
	defer a.ReadWriteLock.Unlock()

	oldV, ok := a.VarMap[name]
	if !ok {
		oldV = map[string]any{}
	}

	mapV, ok := oldV.(map[string]any)
	if !ok {
		return errors.New("value is not a map")
	}

	mapV[key] = v
	a.VarMap[name] = mapV
	return nil
}

// WriteNodeVarRaw replaces the node's entire output value.
func WriteNodeVarRaw(a *FlowNodeRequest, name string, v any) error {
	a.ReadWriteLock.Lock()
	defer a.ReadWriteLock.Unlock()

	a.VarMap[name] = v
	return nil
}

// WriteNodeVarBulk merges several keys into the node's output map.
func WriteNodeVarBulk(a *FlowNodeRequest, name string, v map[string]any) error {
	a.ReadWriteLock.Lock()
	defer a.ReadWriteLock.Unlock()

	oldV, ok := a.VarMap[name]
	if !ok {
		oldV = map[string]any{}
	}

	mapV, ok := oldV.(map[string]any)
	if !ok {
		return errors.New("value is not a map")
	}

	for key, value := range v {
		mapV[key] = value
	}

	a.VarMap[name] = mapV
	return nil
}

func ReadVarRaw(a *FlowNodeRequest, key string) (any, error) {
	a.ReadWriteLock.RLock()
	v, ok := a.VarMap[key]
	a.ReadWriteLock.RUnlock()

	if !ok {
		return nil, ErrVarKeyNotFound
	}

	return v, nil
}

func ReadNodeVar(a *FlowNodeRequest, name, key string) (any, error) {
	a.ReadWriteLock.RLock()
	nodeVarMap, ok := a.VarMap[name]
	a.ReadWriteLock.RUnlock()

	if !ok {
		return nil, ErrVarNodeNotFound
	}

	castedNodeVarMap, ok := nodeVarMap.(map[string]any)
	if !ok {
		return nil, errors.New("value is not a map")
	}

	v, ok := castedNodeVarMap[key]
	if !ok {
		return nil, ErrVarKeyNotFound
	}

	return v, nil
}

// WriteNodeVarWithTracking writes a node variable and records it in the tracker.
func WriteNodeVarWithTracking(a *FlowNodeRequest, name string, key string, v any, tracker *tracking.VariableTracker) error {
	if err := WriteNodeVar(a, name, key, v); err != nil {
		return err
	}
	tracker.TrackWrite(name+"."+key, v)
	return nil
}

func WriteNodeVarRawWithTracking(a *FlowNodeRequest, name string, v any, tracker *tracking.VariableTracker) error {
	if err := WriteNodeVarRaw(a, name, v); err != nil {
		return err
	}
	tracker.TrackWrite(name, v)
	return nil
}

func WriteNodeVarBulkWithTracking(a *FlowNodeRequest, name string, v map[string]any, tracker *tracking.VariableTracker) error {
	if err := WriteNodeVarBulk(a, name, v); err != nil {
		return err
	}
	for key, value := range v {
		tracker.TrackWrite(name+"."+key, value)
	}
	return nil
}

func ReadVarRawWithTracking(a *FlowNodeRequest, key string, tracker *tracking.VariableTracker) (any, error) {
	v, err := ReadVarRaw(a, key)
	if err != nil {
		return nil, err
	}
	tracker.TrackRead(key, v)
	return v, nil
}
