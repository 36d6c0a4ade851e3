package document

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/codec"
	"github.com/hupe1980/catdb/internal/sourcetree"
)

// ErrNotDocument is returned by Serialize for entries of other engines.
var ErrNotDocument = errors.New("entry is not a *document.Document")

// Engine parses and serializes Documents. It implements catdb.Engine,
// catdb.SourceParser and catdb.Validator.
type Engine struct {
	codec codec.Codec
}

var (
	_ catdb.Engine       = (*Engine)(nil)
	_ catdb.SourceParser = (*Engine)(nil)
	_ catdb.Validator    = (*Engine)(nil)
)

// Option configures an Engine.
type Option func(*Engine)

// WithCodec sets the JSON codec. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(e *Engine) {
		if c == nil {
			c = codec.Default
		}
		e.codec = c
	}
}

// NewEngine returns an Engine using codec.Default.
func NewEngine(optFns ...Option) *Engine {
	e := &Engine{codec: codec.Default}
	for _, fn := range optFns {
		fn(e)
	}
	return e
}

// Parse decodes a stored JSON document.
func (e *Engine) Parse(data []byte) (catdb.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", catdb.ErrInvalidSource)
	}
	var d Document
	if err := e.codec.Unmarshal(trimmed, &d); err != nil {
		return nil, err
	}
	if d.Name == "" {
		return nil, fmt.Errorf("%w: object has no name", catdb.ErrInvalidSource)
	}
	return &d, nil
}

// Serialize encodes a Document as JSON.
func (e *Engine) Serialize(entry catdb.Entry, pretty bool) ([]byte, error) {
	d, ok := entry.(*Document)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotDocument, entry)
	}
	return codec.Marshal(e.codec, d, pretty)
}

// NewPackage returns the package document of namespace listing members.
func (e *Engine) NewPackage(namespace string, members []catdb.Entry) (catdb.Entry, error) {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.DistinctName())
	}
	sort.Strings(names)
	return &Document{Name: namespace, Type: TypePackage, Members: names}, nil
}

// Validate checks the structure of a Document before it is written.
func (e *Engine) Validate(entry catdb.Entry) error {
	d, ok := entry.(*Document)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotDocument, entry)
	}
	switch d.Type {
	case "", TypeEntry, TypePackage:
		if d.Super != nil {
			return fmt.Errorf("%s: only categories have a super-category", d.Name)
		}
	case TypeCategory:
	default:
		return fmt.Errorf("%s: unknown document type %q", d.Name, d.Type)
	}
	if d.Super != nil && d.Super.Name() == d.Name {
		return fmt.Errorf("%s: category is its own super-category", d.Name)
	}
	return nil
}

// Extensions implements catdb.SourceParser.
func (e *Engine) Extensions() []string {
	return []string{".json", ".jsonc", ".yaml", ".yml"}
}

// ParseSource implements catdb.SourceParser. JSON sources may carry
// comments and trailing commas. Documents in category files default to
// TypeCategory.
func (e *Engine) ParseSource(p string, data []byte) (catdb.Entry, error) {
	var (
		entry catdb.Entry
		err   error
	)
	switch strings.ToLower(path.Ext(p)) {
	case ".json", ".jsonc":
		entry, err = e.Parse(jsonc.ToJSON(data))
	case ".yaml", ".yml":
		entry, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q", catdb.ErrInvalidSource, path.Ext(p))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	d := entry.(*Document)
	if d.Type == "" && sourcetree.IsCategory(p) {
		d.Type = TypeCategory
	}
	return d, nil
}

func parseYAML(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: not a YAML mapping", catdb.ErrInvalidSource)
	}
	var d Document
	if err := root.Decode(&d); err != nil {
		return nil, err
	}
	if d.Name == "" {
		return nil, fmt.Errorf("%w: object has no name", catdb.ErrInvalidSource)
	}
	return &d, nil
}
