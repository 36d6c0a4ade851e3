package catdb

import "fmt"

// Entry is the unit of storage. Entries are built and serialized by an
// Engine; the store only looks at the name, the hash and the declared
// indices.
type Entry interface {
	// DistinctName is the unique key of the entry.
	DistinctName() string
	// HashCode must equal HashOf(DistinctName()).
	HashCode() Hash
	// IndexSpecs maps index names to the indices the entry is a member of.
	IndexSpecs() map[string]IndexSpec
	// Member returns a named property of the entry.
	Member(name string) (any, bool)
}

// Category is an entry taking part in the super/sub category forest.
type Category interface {
	Entry
	// SuperCategory returns nil for a root category.
	SuperCategory() *Ref
}

// PackageMember is an entry that may contribute to its namespace package.
type PackageMember interface {
	Entry
	PackageBearing() bool
}

// Engine turns stored bytes into entries and back.
type Engine interface {
	Parse(data []byte) (Entry, error)
	Serialize(e Entry, pretty bool) ([]byte, error)
	// NewPackage builds the aggregate for namespace. Its distinct name is
	// the namespace itself.
	NewPackage(namespace string, members []Entry) (Entry, error)
}

// SourceParser reads human-authored source files for the loaders.
type SourceParser interface {
	// Extensions lists the file extensions handled, with leading dot.
	Extensions() []string
	// ParseSource parses the contents of the file at path. It must fail
	// with ErrInvalidSource when data does not hold a named object.
	ParseSource(path string, data []byte) (Entry, error)
}

// Validator is implemented by engines that check entries before they are
// written when the store is configured with ValidateEntries.
type Validator interface {
	Validate(e Entry) error
}

// IndexKind selects how an index collects its target categories.
type IndexKind int

const (
	// IndexKindCategory indexes an entry under the categories referenced
	// by one of its members.
	IndexKindCategory IndexKind = iota + 1
)

// ParseIndexKind parses the textual form of an IndexKind.
func ParseIndexKind(s string) (IndexKind, error) {
	switch s {
	case "category":
		return IndexKindCategory, nil
	default:
		return 0, NewConfigurationError("", fmt.Sprintf("unsupported index kind %q", s), nil)
	}
}

func (k IndexKind) String() string {
	switch k {
	case IndexKindCategory:
		return "category"
	default:
		return fmt.Sprintf("IndexKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k IndexKind) MarshalText() ([]byte, error) {
	if k != IndexKindCategory {
		return nil, NewConfigurationError("", fmt.Sprintf("unsupported index kind %d", int(k)), nil)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *IndexKind) UnmarshalText(text []byte) error {
	parsed, err := ParseIndexKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IndexSpec declares one index an entry belongs to.
type IndexSpec struct {
	Kind IndexKind `json:"kind" yaml:"kind"`
	// Source names the member holding the category references.
	Source string `json:"sourceProperty" yaml:"sourceProperty"`
	// IncludeAncestors also records the entry in every super-category of
	// the referenced categories.
	IncludeAncestors bool `json:"includeAncestors,omitempty" yaml:"includeAncestors,omitempty"`
}

// refNames extracts category names from a member value.
func refNames(v any) []string {
	switch v := v.(type) {
	case nil:
		return nil
	case *Ref:
		if v == nil {
			return nil
		}
		return []string{v.Name()}
	case []*Ref:
		out := make([]string, 0, len(v))
		for _, r := range v {
			if r != nil {
				out = append(out, r.Name())
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, refNames(item)...)
		}
		return out
	default:
		return nil
	}
}
