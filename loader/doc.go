// Package loader ingests directory trees of source files into a catdb.DB,
// resolving super-category references between the files as it goes.
//
// Unlike DB.LoadDir, which persists categories in rounds, the loader
// resolves each category on demand: loading a category first loads its
// super-category from the same tree, wherever it sits in the sorted file
// order. Two goroutines asking for the same name share one read. Circular
// references are detected both along one resolution path and across
// goroutines waiting on each other.
//
//	n, err := loader.LoadDir(ctx, db, document.NewEngine(), "./sources", true)
//
// BootstrapDatabaseObjects loads every immediate subdirectory of a root,
// one at a time. Watch keeps a tree in sync with the store as files change.
package loader
