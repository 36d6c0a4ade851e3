// Package catdb provides an embedded, hash-addressed object store for named
// entries.
//
// Every entry lives in one file whose path is derived from the xxhash64 of
// its distinct name. Categories form a forest through their super-category
// references, and entries are recorded in plain-text index files of the
// categories they belong to.
//
// # Quick Start
//
//	_ = catdb.Create("./db", catdb.Config{Version: "1", Sizing: 65536})
//
//	db := catdb.Open("./db", document.NewEngine())
//	defer db.Close()
//
//	_ = db.Put(ctx, &document.Document{Name: "Animal", Type: document.TypeCategory})
//	e, err := db.Get(ctx, "Animal")
//
// Open is lazy: the configuration is read by the first operation.
//
// # Layout
//
//	<root>/dbconfig.json
//	<root>/data/
//	<root>/<s1>/.../<sk>/<hash>.json          entry
//	<root>/<s1>/.../<sk>/<hash>_<indexName>   index of a category
//
// The shard depth k is floor(log256(Config.Sizing)); each shard is two hex
// digits of the hash. Index files hold one member hash per line.
//
// # Sessions and References
//
// A Session caches every lookup for one unit of work. A Ref is a lazy
// pointer to an entry by name resolved through a Session:
//
//	s := db.NewSession()
//	mammals, err := s.GetByIndex(ctx, catdb.NewRef("Mammal"), "members", nil)
//
// # Errors
//
// Lookups that find nothing fail with a *NotFoundError, which matches
// ErrNotFound. Layout problems are *ConfigurationError, load ordering
// problems are *DependencyError and storage failures are *IOError.
package catdb
