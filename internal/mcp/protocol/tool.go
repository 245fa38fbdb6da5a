package protocol

import (
	"bytes"
	"encoding/json"
	"sort"
)

// toolFields holds the descriptor fields Tool names explicitly
type toolFields struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	Annotations map[string]interface{} `json:"annotations,omitempty"`
}

var toolFieldNames = []string{"name", "description", "inputSchema", "annotations"}

// MarshalJSON writes the named fields first, then Extra in key order.
func (t Tool) MarshalJSON() ([]byte, error) {
	data, err := marshalNoEscape(toolFields{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
		Annotations: t.Annotations,
	})
	if err != nil || len(t.Extra) == 0 {
		return data, err
	}

	keys := make([]string, 0, len(t.Extra))
	for key := range t.Extra {
		if !isToolField(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, key := range keys {
		name, err := marshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		value, err := marshalNoEscape(t.Extra[key])
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON fills the named fields and collects everything else in
// Extra. Numbers in Extra keep their literal text.
func (t *Tool) UnmarshalJSON(data []byte) error {
	var known toolFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&all); err != nil {
		return err
	}
	for _, key := range toolFieldNames {
		delete(all, key)
	}

	*t = Tool{
		Name:        known.Name,
		Description: known.Description,
		InputSchema: known.InputSchema,
		Annotations: known.Annotations,
	}
	if len(all) > 0 {
		t.Extra = all
	}
	return nil
}

func isToolField(key string) bool {
	for _, name := range toolFieldNames {
		if key == name {
			return true
		}
	}
	return false
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
