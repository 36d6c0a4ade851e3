package catdb_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/document"
)

var sortHashes = cmpopts.SortSlices(func(a, b catdb.Hash) bool { return a < b })

func TestIndexMaintenance(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, testConfig)

	super := document.NewCategory("Super", "")
	c1 := document.NewCategory("C1", "Super")
	subC1 := document.NewCategory("SubC1", "C1")
	require.NoError(t, db.Put(ctx, super))
	require.NoError(t, db.Put(ctx, c1))
	require.NoError(t, db.Put(ctx, subC1))

	got, err := db.ReadCategoryIndex(ctx, c1, document.IndexSubCategories)
	require.NoError(t, err)
	assert.Equal(t, []catdb.Hash{subC1.HashCode()}, got)

	got, err = db.ReadCategoryIndex(ctx, super, document.IndexSubCategories)
	require.NoError(t, err)
	want := []catdb.Hash{c1.HashCode(), subC1.HashCode()}
	if diff := cmp.Diff(want, got, sortHashes); diff != "" {
		t.Errorf("Super subCategories mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, db.Delete(ctx, subC1))

	got, err = db.ReadCategoryIndex(ctx, c1, document.IndexSubCategories)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = db.ReadCategoryIndex(ctx, super, document.IndexSubCategories)
	require.NoError(t, err)
	assert.Equal(t, []catdb.Hash{c1.HashCode()}, got)
}

func TestIndexMaintenance_WithoutAncestors(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, testConfig)

	require.NoError(t, db.Put(ctx, document.NewCategory("Animal", ""), document.NewCategory("Feline", "Animal")))

	lion := document.NewEntry("Lion", "Feline")
	lion.Indexes = map[string]catdb.IndexSpec{
		"direct": {Kind: catdb.IndexKindCategory, Source: "categories"},
	}
	require.NoError(t, db.Put(ctx, lion))

	got, err := db.ReadCategoryIndex(ctx, document.NewCategory("Feline", ""), "direct")
	require.NoError(t, err)
	assert.Equal(t, []catdb.Hash{lion.HashCode()}, got)

	got, err = db.ReadCategoryIndex(ctx, document.NewCategory("Animal", ""), "direct")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndexMaintenance_AncestorLoop(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, testConfig)

	// A loop written straight through Put must not hang the ancestor walk.
	require.NoError(t, db.Put(ctx, document.NewCategory("A", "B")))
	require.NoError(t, db.Put(ctx, document.NewCategory("B", "A")))
	require.NoError(t, db.Put(ctx, document.NewEntry("X", "A")))

	got, err := db.ReadCategoryIndex(ctx, document.NewCategory("B", ""), document.IndexMembers)
	require.NoError(t, err)
	assert.Equal(t, []catdb.Hash{catdb.HashOf("X")}, got)
}

func TestIndexMaintenance_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, testConfig, catdb.WithConcurrency(16))

	category := document.NewCategory("Bucket", "")
	require.NoError(t, db.Put(ctx, category))

	var (
		wg   sync.WaitGroup
		want []catdb.Hash
	)
	for i := 0; i < 50; i++ {
		e := document.NewEntry("item-"+string(rune('a'+i%26))+string(rune('a'+i/26)), "Bucket")
		want = append(want, e.HashCode())
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.Put(ctx, e))
		}()
	}
	wg.Wait()

	got, err := db.ReadCategoryIndex(ctx, category, document.IndexMembers)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, sortHashes); diff != "" {
		t.Errorf("index lost members (-want +got):\n%s", diff)
	}
}

func TestReadCategoryIndex_Missing(t *testing.T) {
	db := newTestDB(t, testConfig)
	got, err := db.ReadCategoryIndex(context.Background(), document.NewCategory("Nothing", ""), "members")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
