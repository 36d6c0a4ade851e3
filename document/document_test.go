package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/document"
)

func TestDocument_IndexSpecs(t *testing.T) {
	assert.Equal(t, map[string]catdb.IndexSpec{
		document.IndexSubCategories: {Kind: catdb.IndexKindCategory, Source: "superCategory", IncludeAncestors: true},
	}, document.NewCategory("MammalCategory", "AnimalCategory").IndexSpecs())

	assert.Equal(t, map[string]catdb.IndexSpec{
		document.IndexMembers: {Kind: catdb.IndexKindCategory, Source: "categories", IncludeAncestors: true},
	}, document.NewEntry("Lion").IndexSpecs())

	custom := map[string]catdb.IndexSpec{
		"habitats": {Kind: catdb.IndexKindCategory, Source: "habitat"},
	}
	d := document.NewEntry("Lion")
	d.Indexes = custom
	assert.Equal(t, custom, d.IndexSpecs())
}

func TestDocument_Member(t *testing.T) {
	d := document.NewEntry("zoo.Lion", "FelineCategory")
	d.Properties = map[string]any{"legs": 4}

	v, ok := d.Member("name")
	assert.True(t, ok)
	assert.Equal(t, "zoo.Lion", v)

	v, ok = d.Member("categories")
	assert.True(t, ok)
	assert.Len(t, v, 1)

	v, ok = d.Member("legs")
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	_, ok = d.Member("superCategory")
	assert.False(t, ok)
	_, ok = d.Member("wings")
	assert.False(t, ok)
}

func TestDocument_Identity(t *testing.T) {
	d := document.NewCategory("AnimalCategory", "")
	assert.Equal(t, "AnimalCategory", d.DistinctName())
	assert.Equal(t, catdb.HashOf("AnimalCategory"), d.HashCode())
	assert.True(t, d.IsCategory())
	assert.Nil(t, d.SuperCategory())
	assert.False(t, d.PackageBearing())
}
