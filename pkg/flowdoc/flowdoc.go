// Package flowdoc is the portable document form of a flow: what editors
// save, what imports and exports carry, and what the simulator loads.
// Documents round-trip losslessly between JSON and YAML, including fields
// the engine does not interpret.
package flowdoc

import (
	"fmt"
	"time"

	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

type Document struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Version   string         `json:"version,omitempty" yaml:"version,omitempty"`
	Status    string         `json:"status,omitempty" yaml:"status,omitempty"`
	Tags      []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Variables []VariableDoc  `json:"variables,omitempty" yaml:"variables,omitempty"`
	Nodes     []NodeDoc      `json:"nodes" yaml:"nodes"`
	Edges     []EdgeDoc      `json:"edges" yaml:"edges"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type NodeDoc struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Type     string         `json:"type" yaml:"type"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Position *PositionDoc   `json:"position,omitempty" yaml:"position,omitempty"`
}

type PositionDoc struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type EdgeDoc struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Port   string `json:"port,omitempty" yaml:"port,omitempty"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

type VariableDoc struct {
	Name        string `json:"name" yaml:"name"`
	Value       any    `json:"value" yaml:"value"`
	Enabled     *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ToModel materializes the document into a flow. Node and edge IDs must be
// ULIDs when present; missing IDs are minted. Edge node references are by
// node ID or, as a fallback, node name.
func (d *Document) ToModel() (*mflow.Flow, error) {
	flow := &mflow.Flow{
		Name:      d.Name,
		Version:   d.Version,
		Tags:      d.Tags,
		Status:    mflow.FLOW_STATUS_DRAFT,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	var err error
	if flow.ID, err = parseID(d.ID); err != nil {
		return nil, fmt.Errorf("flow id: %w", err)
	}
	if d.Status != "" {
		if flow.Status, err = mflow.FlowStatusFromString(d.Status); err != nil {
			return nil, err
		}
	}

	byRef := make(map[string]idwrap.IDWrap, len(d.Nodes)*2)
	for _, nd := range d.Nodes {
		nodeID, err := parseID(nd.ID)
		if err != nil {
			return nil, fmt.Errorf("node %q id: %w", nd.Name, err)
		}
		kind, err := mflow.NodeKindFromString(nd.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}

		modelNode := mflow.Node{
			ID:       nodeID,
			FlowID:   flow.ID,
			Name:     nd.Name,
			NodeKind: kind,
			Config:   nd.Config,
		}
		if nd.Position != nil {
			modelNode.PositionX = nd.Position.X
			modelNode.PositionY = nd.Position.Y
		}
		flow.Nodes = append(flow.Nodes, modelNode)

		if nd.ID != "" {
			byRef[nd.ID] = nodeID
		}
		if nd.Name != "" {
			byRef[nd.Name] = nodeID
		}
	}

	for i, ed := range d.Edges {
		edgeID, err := parseID(ed.ID)
		if err != nil {
			return nil, fmt.Errorf("edge %d id: %w", i, err)
		}
		sourceID, ok := byRef[ed.Source]
		if !ok {
			return nil, fmt.Errorf("edge %d: unknown source %q", i, ed.Source)
		}
		targetID, ok := byRef[ed.Target]
		if !ok {
			return nil, fmt.Errorf("edge %d: unknown target %q", i, ed.Target)
		}
		handle, err := mflow.EdgeHandleFromString(ed.Port)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}

		flow.Edges = append(flow.Edges, mflow.Edge{
			ID:           edgeID,
			FlowID:       flow.ID,
			SourceID:     sourceID,
			TargetID:     targetID,
			SourceHandle: handle,
			Label:        ed.Label,
		})
	}

	for _, vd := range d.Variables {
		enabled := true
		if vd.Enabled != nil {
			enabled = *vd.Enabled
		}
		flow.Variables = append(flow.Variables, mflow.FlowVariable{
			ID:          idwrap.NewNow(),
			FlowID:      flow.ID,
			Name:        vd.Name,
			Value:       vd.Value,
			Enabled:     enabled,
			Description: vd.Description,
		})
	}

	return flow, nil
}

// FromModel renders a flow back into document form.
func FromModel(flow *mflow.Flow) *Document {
	doc := &Document{
		ID:      flow.ID.String(),
		Name:    flow.Name,
		Version: flow.Version,
		Status:  mflow.StringFlowStatus(flow.Status),
		Tags:    flow.Tags,
	}

	for _, n := range flow.Nodes {
		nd := NodeDoc{
			ID:     n.ID.String(),
			Name:   n.Name,
			Type:   mflow.StringNodeKind(n.NodeKind),
			Config: n.Config,
		}
		if n.PositionX != 0 || n.PositionY != 0 {
			nd.Position = &PositionDoc{X: n.PositionX, Y: n.PositionY}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	for _, e := range flow.Edges {
		doc.Edges = append(doc.Edges, EdgeDoc{
			ID:     e.ID.String(),
			Source: e.SourceID.String(),
			Target: e.TargetID.String(),
			Port:   mflow.StringEdgeHandle(e.SourceHandle),
			Label:  e.Label,
		})
	}

	for _, v := range flow.Variables {
		enabled := v.Enabled
		doc.Variables = append(doc.Variables, VariableDoc{
			Name:        v.Name,
			Value:       v.Value,
			Enabled:     &enabled,
			Description: v.Description,
		})
	}

	return doc
}

func parseID(s string) (idwrap.IDWrap, error) {
	if s == "" {
		return idwrap.NewNow(), nil
	}
	return idwrap.NewText(s)
}
