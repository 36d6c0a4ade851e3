package sourcetree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/workerpool"
)

func TestExpectedName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Animal.json", "Animal"},
		{"03_Animal.json", "Animal"},
		{"sub/dir/12_zoo.Lion.yaml", "zoo.Lion"},
		{"2024Report.json", "2024Report"},
		{"_Hidden.json", "_Hidden"},
		{"7_.json", "7_"},
		{"AnimalCategory.jsonc", "AnimalCategory"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpectedName(tt.in))
		})
	}
}

func TestIsCategory(t *testing.T) {
	assert.True(t, IsCategory("01_AnimalCategory.json"))
	assert.True(t, IsCategory("a/b/MammalCategory.yml"))
	assert.False(t, IsCategory("Categoryless.json"))
	assert.False(t, IsCategory("Lion.json"))
}

func TestScan(t *testing.T) {
	ctx := context.Background()
	src := blobstore.NewMemoryStore()
	for _, name := range []string{
		"01_RootCategory.json",
		"sub/02_MidCategory.json",
		"sub/deep/03_LeafCategory.yaml",
		"Lion.json",
		"sub/Tiger.jsonc",
		"README.md",
	} {
		require.NoError(t, src.Put(ctx, name, []byte("{}")))
	}

	pool := workerpool.New(2)
	exts := []string{".json", ".jsonc", ".yaml"}

	cats, ents, err := Scan(ctx, pool, src, true, exts)
	require.NoError(t, err)
	assert.Equal(t, []File{
		{Path: "01_RootCategory.json", Name: "RootCategory", Category: true},
		{Path: "sub/02_MidCategory.json", Name: "MidCategory", Category: true},
		{Path: "sub/deep/03_LeafCategory.yaml", Name: "LeafCategory", Category: true},
	}, cats)
	assert.Equal(t, []File{
		{Path: "Lion.json", Name: "Lion"},
		{Path: "sub/Tiger.jsonc", Name: "Tiger"},
	}, ents)

	cats, ents, err = Scan(ctx, pool, src, false, exts)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	assert.Len(t, ents, 1)
}

func TestScan_MissingDir(t *testing.T) {
	_, _, err := Scan(context.Background(), workerpool.New(1), blobstore.NewLocalStore(t.TempDir()+"/missing"), true, []string{".json"})
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}
