// Package tracking records which variables each step read and wrote so the
// ledger can attach exact input/output snapshots to every step record.
package tracking

import "sync"

// VariableTracker collects reads and writes for a single step execution.
// Safe for concurrent use.
type VariableTracker struct {
	readVars    map[string]any
	writtenVars map[string]any
	mutex       sync.RWMutex
}

func NewVariableTracker() *VariableTracker {
	return &VariableTracker{
		readVars:    make(map[string]any),
		writtenVars: make(map[string]any),
	}
}

// Reset clears tracked values so the tracker can be reused across attempts.
func (vt *VariableTracker) Reset() {
	if vt == nil {
		return
	}

	vt.mutex.Lock()
	defer vt.mutex.Unlock()
	clear(vt.readVars)
	clear(vt.writtenVars)
}

// TrackRead records that a variable was read with the given value.
func (vt *VariableTracker) TrackRead(key string, value any) {
	if vt == nil {
		return
	}

	vt.mutex.Lock()
	defer vt.mutex.Unlock()
	vt.readVars[key] = deepCopy(value)
}

// TrackWrite records that a variable was written with the given value.
func (vt *VariableTracker) TrackWrite(key string, value any) {
	if vt == nil {
		return
	}

	vt.mutex.Lock()
	defer vt.mutex.Unlock()
	vt.writtenVars[key] = deepCopy(value)
}

// ReadVars returns a copy of all tracked reads, keyed by dotted path.
func (vt *VariableTracker) ReadVars() map[string]any {
	if vt == nil {
		return make(map[string]any)
	}

	vt.mutex.RLock()
	defer vt.mutex.RUnlock()

	result := make(map[string]any, len(vt.readVars))
	for k, v := range vt.readVars {
		result[k] = deepCopy(v)
	}
	return result
}

// WrittenVars returns a copy of all tracked writes, keyed by dotted path.
func (vt *VariableTracker) WrittenVars() map[string]any {
	if vt == nil {
		return make(map[string]any)
	}

	vt.mutex.RLock()
	defer vt.mutex.RUnlock()

	result := make(map[string]any, len(vt.writtenVars))
	for k, v := range vt.writtenVars {
		result[k] = deepCopy(v)
	}
	return result
}

// ReadVarsAsTree returns the tracked reads nested by their dotted paths.
func (vt *VariableTracker) ReadVarsAsTree() map[string]any {
	return BuildTree(vt.ReadVars())
}

// WrittenVarsAsTree returns the tracked writes nested by their dotted paths.
func (vt *VariableTracker) WrittenVarsAsTree() map[string]any {
	return BuildTree(vt.WrittenVars())
}

// deepCopy guards the tracker's snapshots against later mutation of the
// run's variable map.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, inner := range val {
			result[k] = deepCopy(inner)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, inner := range val {
			result[i] = deepCopy(inner)
		}
		return result
	default:
		return v
	}
}
