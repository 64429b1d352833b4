package fieldconfig

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseRaw parses YAML text into a raw field config node.
func ParseRaw(text string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0], nil
	}
	return &doc, nil
}

// decode reads the three accepted shapes into declarations, in order.
func decode(raw *yaml.Node) ([]declared, error) {
	if raw == nil || raw.Kind == 0 {
		return nil, nil
	}
	if raw.Kind == yaml.DocumentNode {
		if len(raw.Content) == 0 {
			return nil, nil
		}
		raw = raw.Content[0]
	}

	switch raw.Kind {
	case yaml.ScalarNode:
		if raw.Tag == "!!null" {
			return nil, nil
		}
		return decodeList(raw.Value, raw.Line), nil
	case yaml.SequenceNode:
		return decodeSequence(raw)
	case yaml.MappingNode:
		return decodeMapping(raw)
	default:
		return nil, fmt.Errorf("line %d: field config must be a list or a mapping", raw.Line)
	}
}

func decodeList(list string, line int) []declared {
	var out []declared
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, declared{source: name, line: line})
	}
	return out
}

func decodeSequence(seq *yaml.Node) ([]declared, error) {
	var out []declared
	for _, item := range seq.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			name := strings.TrimSpace(item.Value)
			if name == "" {
				return nil, fmt.Errorf("line %d: empty field name", item.Line)
			}
			out = append(out, declared{source: name, line: item.Line})
		case yaml.MappingNode:
			decls, err := decodeMapping(item)
			if err != nil {
				return nil, err
			}
			out = append(out, decls...)
		default:
			return nil, fmt.Errorf("line %d: sequence items must be field names or mappings", item.Line)
		}
	}
	return out, nil
}

func decodeMapping(m *yaml.Node) ([]declared, error) {
	var out []declared
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: field name must be a string", key.Line)
		}
		d := declared{source: strings.TrimSpace(key.Value), line: key.Line}

		switch val.Kind {
		case yaml.ScalarNode:
			// "Title: keyword" shorthand; a null value keeps the defaults.
			if val.Tag != "!!null" {
				d.kind = val.Value
			}
		case yaml.MappingNode:
			if err := decodeSettings(val, &d); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("line %d: settings for %s must be a mapping", val.Line, d.source)
		}
		out = append(out, d)
	}
	return out, nil
}

func decodeSettings(m *yaml.Node, d *declared) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: %s.%s must be a scalar", val.Line, d.source, key.Value)
		}
		switch key.Value {
		case "name":
			d.name = strings.TrimSpace(val.Value)
		case "type":
			d.kind = val.Value
		case "filter":
			d.filter = strings.TrimSpace(val.Value)
		case "store_empty":
			var b bool
			if err := val.Decode(&b); err != nil {
				return fmt.Errorf("line %d: store_empty: %w", val.Line, err)
			}
			d.storeEmpty = b
		default:
			return fmt.Errorf("line %d: unknown setting %q for field %s", key.Line, key.Value, d.source)
		}
	}
	return nil
}
