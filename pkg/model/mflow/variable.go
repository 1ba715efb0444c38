//nolint:revive // exported
package mflow

import (
	"github.com/JimGeek/Super/pkg/idwrap"
)

// FlowVariable is a flow-scoped variable seeded into every run of the flow.
type FlowVariable struct {
	ID          idwrap.IDWrap `json:"id"`
	FlowID      idwrap.IDWrap `json:"flow_id"`
	Name        string        `json:"key"`
	Value       any           `json:"value"`
	Enabled     bool          `json:"enabled"`
	Description string        `json:"description"`
}

func (fv FlowVariable) IsEnabled() bool {
	return fv.Enabled
}

// SeedVars folds the enabled flow variables into a base variable map.
func SeedVars(vars []FlowVariable) map[string]any {
	out := make(map[string]any, len(vars))
	for _, v := range vars {
		if v.IsEnabled() {
			out[v.Name] = v.Value
		}
	}
	return out
}
