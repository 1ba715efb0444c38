// Package expression evaluates expr-lang expressions and {{ }} interpolations
// against a run's variable map. Data-node transforms, condition-free config
// fields and End-node return values all resolve through here.
package expression

import (
	"maps"

	"github.com/JimGeek/Super/pkg/flow/tracking"
)

// Env wraps the hierarchical variable data an expression may read.
type Env struct {
	data    map[string]any
	tracker *tracking.VariableTracker
}

func NewEnv(data map[string]any) *Env {
	if data == nil {
		data = make(map[string]any)
	}
	return &Env{data: data}
}

// WithTracking returns a copy of the Env that records every variable read in
// the provided tracker.
func (e *Env) WithTracking(t *tracking.VariableTracker) *Env {
	clone := e.Clone()
	clone.tracker = t
	return clone
}

func (e *Env) Clone() *Env {
	if e == nil {
		return NewEnv(nil)
	}
	newData := make(map[string]any, len(e.data))
	maps.Copy(newData, e.data)
	return &Env{data: newData, tracker: e.tracker}
}

func (e *Env) Data() map[string]any {
	if e == nil {
		return make(map[string]any)
	}
	return e.data
}

// Get retrieves a value at the given dotted path and tracks the read.
func (e *Env) Get(path string) (any, bool) {
	if e == nil {
		return nil, false
	}
	value, ok := ResolvePath(e.data, path)
	if ok && e.tracker != nil {
		e.tracker.TrackRead(path, value)
	}
	return value, ok
}

// Set writes a value at the given path, creating intermediate maps as needed.
func (e *Env) Set(path string, value any) error {
	if e == nil {
		return nil
	}
	err := SetPath(e.data, path, value)
	if err != nil {
		return err
	}
	if e.tracker != nil {
		e.tracker.TrackWrite(path, value)
	}
	return nil
}

func (e *Env) Has(path string) bool {
	_, ok := e.Get(path)
	return ok
}
