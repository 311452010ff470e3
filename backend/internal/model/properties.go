package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Property is one key/value pair of a node or relationship
type Property struct {
	Key   string
	Value string
}

// Properties is an ordered string mapping. Order is preserved through JSON and YAML
// so that details render in the order the document author wrote them.
type Properties []Property

// Get returns the value stored under key
func (p Properties) Get(key string) (string, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing key in place, or appends a new key
func (p *Properties) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: value})
}

// Keys returns the keys in order
func (p Properties) Keys() []string {
	keys := make([]string, len(p))
	for i, prop := range p {
		keys[i] = prop.Key
	}
	return keys
}

// MarshalJSON writes the properties as a JSON object in order
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. Non-string values are kept
// as their compact JSON text.
func (p *Properties) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*p = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read properties: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties must be an object, got %v", tok)
	}

	out := Properties{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read property key: %w", err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to read property %q: %w", key, err)
		}
		value, err := rawPropertyValue(raw)
		if err != nil {
			return fmt.Errorf("failed to read property %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close properties: %w", err)
	}

	*p = out
	return nil
}

func rawPropertyValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return "", nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return "", err
		}
		return compact.String(), nil
	}
}

// MarshalYAML writes the properties as an ordered YAML mapping
func (p Properties) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, prop := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: prop.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: prop.Value},
		)
	}
	return node, nil
}

// UnmarshalYAML reads a YAML mapping keeping key order
func (p *Properties) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*p = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("properties must be a mapping (line %d)", value.Line)
	}

	out := Properties{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		switch {
		case val.Kind == yaml.ScalarNode && val.Tag == "!!null":
			out.Set(key.Value, "")
		case val.Kind == yaml.ScalarNode:
			out.Set(key.Value, val.Value)
		default:
			encoded, err := yaml.Marshal(val)
			if err != nil {
				return fmt.Errorf("failed to read property %q: %w", key.Value, err)
			}
			out.Set(key.Value, strings.TrimSpace(string(encoded)))
		}
	}

	*p = out
	return nil
}
