// Package testutil provides testing utilities for catdb.
//
// This package is intended for use in tests only. It writes source trees
// for the loaders and generates random distinct names.
//
//	dir := t.TempDir()
//	testutil.WriteTree(t, dir, testutil.ZooFixture)
//	n, err := db.LoadDir(ctx, dir, true)
package testutil
