package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Stores written with GoJSON read back unchanged through it; select it with
// catdb.WithCodec or document.WithCodec to avoid the go-json dependency at
// runtime.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// MarshalIndent encodes the value to indented JSON.
func (JSON) MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used for entry bodies.
var Default Codec = GoJSON{}
