//go:build unix

package catdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/document"
)

func TestExclusiveLock(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")
	require.NoError(t, catdb.Create(dir, testConfig))

	first := catdb.Open(dir, document.NewEngine(), catdb.WithExclusiveLock())
	_, err := first.Exists(ctx, "x")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, catdb.LockFile))

	second := catdb.Open(dir, document.NewEngine(), catdb.WithExclusiveLock())
	_, err = second.Exists(ctx, "x")
	var ce *catdb.ConfigurationError
	require.ErrorAs(t, err, &ce)

	// Readers without the option are not affected.
	_, err = catdb.Open(dir, document.NewEngine()).Exists(ctx, "x")
	require.NoError(t, err)

	require.NoError(t, first.Close())
	_, err = second.Exists(ctx, "x")
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
