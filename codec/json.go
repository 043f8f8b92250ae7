package codec

import (
	"bytes"
	"encoding/json"
)

// JSON is the standard-library JSON codec with compact output.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// PrettyJSON is a JSON codec with two-space indentation and HTML escaping
// disabled, so non-ASCII characters round-trip as written instead of being
// escaped.
type PrettyJSON struct{}

// Marshal encodes the value to indented JSON.
func (PrettyJSON) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder appends a trailing newline; keep it, the document is a file.
	return buf.Bytes(), nil
}

// Unmarshal decodes the JSON data into v.
func (PrettyJSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json-pretty").
func (PrettyJSON) Name() string { return "json-pretty" }
