package catdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/catdb/codec"
)

type refState uint8

const (
	refUnresolved refState = iota
	refResolved
	refMissing
)

// Ref is a lazy pointer to an entry by name. It caches its resolution,
// including a miss, for its own lifetime.
type Ref struct {
	name   string
	params map[string]any

	mu    sync.Mutex
	state refState
	entry Entry
}

// NewRef returns an unresolved reference to name.
func NewRef(name string) *Ref {
	return &Ref{name: name}
}

// NewRefWithParams returns an unresolved reference carrying a parameter
// overlay.
func NewRefWithParams(name string, params map[string]any) *Ref {
	return &Ref{name: name, params: params}
}

// Name returns the referenced distinct name, or "" for a nil Ref.
func (r *Ref) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

// Params returns the parameter overlay, or nil.
func (r *Ref) Params() map[string]any { return r.params }

func (r *Ref) String() string { return r.Name() }

// Get resolves r through the session cache.
func (r *Ref) Get(ctx context.Context, s *Session) (Entry, error) {
	return r.resolve(ctx, s.Get)
}

// GetFromDB resolves r against the store, bypassing the session cache. A
// miss cached by an earlier resolution is still honored.
func (r *Ref) GetFromDB(ctx context.Context, s *Session) (Entry, error) {
	return r.resolve(ctx, s.DB().Get)
}

func (r *Ref) resolve(ctx context.Context, get func(context.Context, string) (Entry, error)) (Entry, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reference", ErrNotFound)
	}
	r.mu.Lock()
	state, entry := r.state, r.entry
	r.mu.Unlock()

	switch state {
	case refResolved:
		return entry, nil
	case refMissing:
		return nil, &NotFoundError{Name: r.name, Hash: HashOf(r.name)}
	}

	e, err := get(ctx, r.name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.mu.Lock()
			r.state, r.entry = refMissing, nil
			r.mu.Unlock()
		}
		return nil, err
	}
	r.mu.Lock()
	r.state, r.entry = refResolved, e
	r.mu.Unlock()
	return e, nil
}

// With resolves r and calls fn with the entry.
func (r *Ref) With(ctx context.Context, s *Session, fn func(Entry) error) error {
	e, err := r.Get(ctx, s)
	if err != nil {
		return err
	}
	return fn(e)
}

// Member resolves r and returns the named member. A missing member yields
// nil without an error.
func (r *Ref) Member(ctx context.Context, s *Session, name string) (any, error) {
	var v any
	err := r.With(ctx, s, func(e Entry) error {
		v, _ = e.Member(name)
		return nil
	})
	return v, err
}

// Equal reports whether r and other point at the same name.
func (r *Ref) Equal(other *Ref) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.name == other.name
}

// StrictEqual is Equal and also requires identical parameter overlays.
func (r *Ref) StrictEqual(other *Ref) bool {
	if !r.Equal(other) {
		return false
	}
	if r == nil {
		return true
	}
	if len(r.params) != len(other.params) {
		return false
	}
	for k, v := range r.params {
		ov, ok := other.params[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

type refObject struct {
	Name   string         `json:"name" yaml:"name"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

func (r *Ref) set(name string, params map[string]any) error {
	if name == "" {
		return errors.New("reference without a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name, r.params = name, params
	r.state, r.entry = refUnresolved, nil
	return nil
}

// MarshalJSON writes the name, or an object when a parameter overlay is
// present.
func (r *Ref) MarshalJSON() ([]byte, error) {
	if len(r.params) == 0 {
		return codec.Default.Marshal(r.name)
	}
	return codec.Default.Marshal(refObject{Name: r.name, Params: r.params})
}

// UnmarshalJSON accepts both forms written by MarshalJSON.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := codec.Default.Unmarshal(data, &name); err != nil {
			return err
		}
		return r.set(name, nil)
	}
	var obj refObject
	if err := codec.Default.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid reference: %w", err)
	}
	return r.set(obj.Name, obj.Params)
}

// MarshalYAML mirrors MarshalJSON.
func (r *Ref) MarshalYAML() (any, error) {
	if len(r.params) == 0 {
		return r.name, nil
	}
	return refObject{Name: r.name, Params: r.params}, nil
}

// UnmarshalYAML accepts a scalar name or a {name, params} mapping.
func (r *Ref) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		return r.set(name, nil)
	case yaml.MappingNode:
		var obj refObject
		if err := value.Decode(&obj); err != nil {
			return err
		}
		return r.set(obj.Name, obj.Params)
	default:
		return fmt.Errorf("invalid reference at line %d", value.Line)
	}
}
