package flowdoc

import (
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

func DecodeJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode flow document: %w", err)
	}
	return &doc, nil
}

func EncodeJSON(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func DecodeYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode flow document: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

func EncodeYAML(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// normalize rewrites the map types the YAML decoder produces into the
// JSON-shaped map[string]any the rest of the engine expects.
func (d *Document) normalize() {
	for i := range d.Nodes {
		d.Nodes[i].Config = normalizeMap(d.Nodes[i].Config)
	}
	d.Metadata = normalizeMap(d.Metadata)
	for i := range d.Variables {
		d.Variables[i].Value = normalizeValue(d.Variables[i].Value)
	}
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprintf("%v", k)] = normalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	case int:
		// JSON decodes numbers as float64; match it so documents behave
		// identically regardless of the format they arrived in.
		return float64(val)
	case int64:
		return float64(val)
	default:
		return val
	}
}
