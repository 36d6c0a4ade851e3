package catdb_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/document"
)

func TestRef_Get(t *testing.T) {
	ctx := context.Background()
	db, store := newMemDB(t, testConfig)
	lion := document.NewEntry("Lion")
	lion.Properties = map[string]any{"sound": "roar"}
	require.NoError(t, db.Put(ctx, lion))
	s := db.NewSession()

	ref := catdb.NewRef("Lion")
	e, err := ref.Get(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "Lion", e.DistinctName())

	before := store.Calls(blobstore.OpGet)
	again, err := ref.GetFromDB(ctx, s)
	require.NoError(t, err)
	assert.Same(t, e, again)
	assert.Equal(t, before, store.Calls(blobstore.OpGet), "resolved refs do not read again")

	v, err := ref.Member(ctx, s, "sound")
	require.NoError(t, err)
	assert.Equal(t, "roar", v)
	v, err = ref.Member(ctx, s, "color")
	require.NoError(t, err)
	assert.Nil(t, v)

	var seen string
	require.NoError(t, ref.With(ctx, s, func(e catdb.Entry) error {
		seen = e.DistinctName()
		return nil
	}))
	assert.Equal(t, "Lion", seen)
}

func TestRef_Nil(t *testing.T) {
	ctx := context.Background()
	db, _ := newMemDB(t, testConfig)
	s := db.NewSession()

	var ref *catdb.Ref
	_, err := ref.Get(ctx, s)
	require.ErrorIs(t, err, catdb.ErrNotFound)
	_, err = ref.GetFromDB(ctx, s)
	require.ErrorIs(t, err, catdb.ErrNotFound)
	_, err = ref.Member(ctx, s, "sound")
	require.ErrorIs(t, err, catdb.ErrNotFound)
	assert.Equal(t, "", ref.Name())
}

func TestRef_CachesMiss(t *testing.T) {
	ctx := context.Background()
	db, _ := newMemDB(t, testConfig)
	s := db.NewSession()

	ref := catdb.NewRef("Ghost")
	_, err := ref.Get(ctx, s)
	require.ErrorIs(t, err, catdb.ErrNotFound)

	require.NoError(t, db.Put(ctx, document.NewEntry("Ghost")))

	_, err = ref.GetFromDB(ctx, s)
	require.ErrorIs(t, err, catdb.ErrNotFound, "the cached miss is honored")

	e, err := catdb.NewRef("Ghost").GetFromDB(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "Ghost", e.DistinctName())
}

func TestRef_OtherErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	db, store := newMemDB(t, testConfig)
	require.NoError(t, db.Put(ctx, document.NewEntry("Lion")))

	store.AddRule(string(catdb.HashOf("Lion")), blobstore.Fault{Op: blobstore.OpGet})
	ref := catdb.NewRef("Lion")
	_, err := ref.GetFromDB(ctx, db.NewSession())
	require.ErrorIs(t, err, blobstore.ErrInjected)

	store.ClearRules()
	e, err := ref.GetFromDB(ctx, db.NewSession())
	require.NoError(t, err)
	assert.Equal(t, "Lion", e.DistinctName())
}

func TestRef_Equal(t *testing.T) {
	a := catdb.NewRefWithParams("Lion", map[string]any{"age": 3})
	b := catdb.NewRefWithParams("Lion", map[string]any{"age": 3})
	c := catdb.NewRefWithParams("Lion", map[string]any{"age": 4})
	d := catdb.NewRef("Lion")

	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(c))
	assert.True(t, a.Equal(d))
	assert.False(t, a.Equal(catdb.NewRef("Tiger")))
	assert.False(t, a.Equal(nil))

	assert.True(t, a.StrictEqual(b))
	assert.False(t, a.StrictEqual(c))
	assert.False(t, a.StrictEqual(d))
	assert.True(t, d.StrictEqual(catdb.NewRef("Lion")))
}

func TestRef_JSON(t *testing.T) {
	data, err := json.Marshal(catdb.NewRef("Lion"))
	require.NoError(t, err)
	assert.JSONEq(t, `"Lion"`, string(data))

	data, err = json.Marshal(catdb.NewRefWithParams("Lion", map[string]any{"age": 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Lion","params":{"age":3}}`, string(data))

	var refs []*catdb.Ref
	require.NoError(t, json.Unmarshal([]byte(`["Lion", {"name": "Tiger", "params": {"age": 2}}]`), &refs))
	require.Len(t, refs, 2)
	assert.Equal(t, "Lion", refs[0].Name())
	assert.Nil(t, refs[0].Params())
	assert.Equal(t, "Tiger", refs[1].Name())
	assert.Equal(t, map[string]any{"age": float64(2)}, refs[1].Params())

	var bad catdb.Ref
	require.Error(t, json.Unmarshal([]byte(`{"params": {}}`), &bad))
}

func TestRef_YAML(t *testing.T) {
	var doc struct {
		Super *catdb.Ref   `yaml:"super"`
		Cats  []*catdb.Ref `yaml:"cats"`
	}
	src := "super: Mammal\ncats:\n  - Feline\n  - name: Big\n    params:\n      size: 3\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	assert.Equal(t, "Mammal", doc.Super.Name())
	require.Len(t, doc.Cats, 2)
	assert.Equal(t, "Feline", doc.Cats[0].Name())
	assert.Equal(t, "Big", doc.Cats[1].Name())
	assert.Equal(t, map[string]any{"size": 3}, doc.Cats[1].Params())

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "super: Mammal")
}
