package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	rng := NewRNG(4711)

	names := rng.Names("item-", 100, 3)

	assert.Len(t, names, 100)
	seen := map[string]bool{}
	for _, n := range names {
		assert.Len(t, n, len("item-")+3)
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	assert.Equal(t, names, NewRNG(4711).Names("item-", 100, 3))
}

func TestWriteTree(t *testing.T) {
	dir := t.TempDir()
	WriteTree(t, dir, ZooFixture)

	data, err := os.ReadFile(filepath.Join(dir, "mammals", "felines", "03_FelineCategory.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "MammalCategory")
}
