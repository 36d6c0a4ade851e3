// Package codec centralizes entry, configuration and compression encoding.
//
// Codec selection is a breaking-change boundary: if you change codecs, files
// written by an older codec may no longer decode. The store configuration is
// always written with JSON so it can be read before anything else is known.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Indenter is implemented by codecs that can produce human-readable output.
type Indenter interface {
	MarshalIndent(v any, prefix, indent string) ([]byte, error)
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Marshal encodes v with c, indenting with two spaces when pretty is set and
// the codec supports it.
func Marshal(c Codec, v any, pretty bool) ([]byte, error) {
	if c == nil {
		c = Default
	}
	if pretty {
		if ind, ok := c.(Indenter); ok {
			return ind.MarshalIndent(v, "", "  ")
		}
	}
	return c.Marshal(v)
}

// MustMarshal is a helper for internal tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
