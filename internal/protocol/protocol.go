// Package protocol defines the JSON wire vocabulary shared by the
// server and its clients. Packets are externally tagged: a variant
// without payload is encoded as its bare name string, one with payload
// as a single-key object {"Name": payload}.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tagged encodes a variant carrying a payload as {"name": payload}.
func Tagged(name string, payload any) ([]byte, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", name, err)
	}
	buf := make([]byte, 0, len(name)+len(inner)+4)
	buf = append(buf, '{', '"')
	buf = append(buf, name...)
	buf = append(buf, '"', ':')
	buf = append(buf, inner...)
	buf = append(buf, '}')
	return buf, nil
}

// Unit encodes a payload-less variant as its bare name.
func Unit(name string) ([]byte, error) {
	return json.Marshal(name)
}

// Variant splits an externally tagged value into its name and raw
// payload. A bare string yields a nil payload.
func Variant(data []byte) (string, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", nil, fmt.Errorf("empty value")
	}

	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return "", nil, err
		}
		return name, nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", nil, err
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("expected a single variant key, got %d", len(obj))
	}
	for name, payload := range obj {
		return name, payload, nil
	}
	return "", nil, fmt.Errorf("unreachable")
}
