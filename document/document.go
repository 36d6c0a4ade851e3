package document

import (
	"github.com/hupe1980/catdb"
)

// Type distinguishes the kinds of documents.
type Type string

const (
	TypeEntry    Type = "entry"
	TypeCategory Type = "category"
	TypePackage  Type = "package"
)

// Default index names.
const (
	IndexSubCategories = "subCategories"
	IndexMembers       = "members"
)

// Document is a generic entry. Categories, plain entries and packages all
// share this shape; Type tells them apart.
type Document struct {
	Name string `json:"name" yaml:"name"`
	// Type defaults to TypeEntry when empty.
	Type Type `json:"type,omitempty" yaml:"type,omitempty"`
	// Super is the super-category of a category; nil for a root.
	Super      *catdb.Ref   `json:"superCategory,omitempty" yaml:"superCategory,omitempty"`
	Categories []*catdb.Ref `json:"categories,omitempty" yaml:"categories,omitempty"`
	// Package marks the document as a member of its namespace package.
	Package bool `json:"package,omitempty" yaml:"package,omitempty"`
	// Members lists the distinct names aggregated by a package.
	Members []string `json:"members,omitempty" yaml:"members,omitempty"`
	// Indexes overrides the default indices of the type.
	Indexes    map[string]catdb.IndexSpec `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	Properties map[string]any             `json:"properties,omitempty" yaml:"properties,omitempty"`
}

var (
	_ catdb.Category      = (*Document)(nil)
	_ catdb.PackageMember = (*Document)(nil)
)

// NewCategory returns a category under super, or a root when super is "".
func NewCategory(name, super string) *Document {
	d := &Document{Name: name, Type: TypeCategory}
	if super != "" {
		d.Super = catdb.NewRef(super)
	}
	return d
}

// NewEntry returns a plain entry belonging to categories.
func NewEntry(name string, categories ...string) *Document {
	d := &Document{Name: name, Type: TypeEntry}
	for _, c := range categories {
		d.Categories = append(d.Categories, catdb.NewRef(c))
	}
	return d
}

func (d *Document) DistinctName() string { return d.Name }

func (d *Document) HashCode() catdb.Hash { return catdb.HashOf(d.Name) }

// IsCategory reports whether d is a category.
func (d *Document) IsCategory() bool { return d.Type == TypeCategory }

// IndexSpecs returns the declared indices, or the defaults of the type:
// categories index under their super-category as "subCategories", entries
// under their categories as "members". Both include ancestors.
func (d *Document) IndexSpecs() map[string]catdb.IndexSpec {
	if len(d.Indexes) > 0 {
		return d.Indexes
	}
	switch d.Type {
	case TypeCategory:
		return map[string]catdb.IndexSpec{
			IndexSubCategories: {Kind: catdb.IndexKindCategory, Source: "superCategory", IncludeAncestors: true},
		}
	case TypePackage:
		return nil
	default:
		return map[string]catdb.IndexSpec{
			IndexMembers: {Kind: catdb.IndexKindCategory, Source: "categories", IncludeAncestors: true},
		}
	}
}

// Member returns a field by its serialized name, falling back to
// Properties.
func (d *Document) Member(name string) (any, bool) {
	switch name {
	case "name":
		return d.Name, true
	case "type":
		return string(d.Type), d.Type != ""
	case "superCategory":
		return d.Super, d.Super != nil
	case "categories":
		return d.Categories, len(d.Categories) > 0
	case "package":
		return d.Package, true
	case "members":
		return d.Members, len(d.Members) > 0
	}
	v, ok := d.Properties[name]
	return v, ok
}

// SuperCategory implements catdb.Category.
func (d *Document) SuperCategory() *catdb.Ref { return d.Super }

// PackageBearing implements catdb.PackageMember.
func (d *Document) PackageBearing() bool { return d.Package }
