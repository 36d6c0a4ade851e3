package catdb

import (
	"context"
	"sort"
	"strings"

	"github.com/hupe1980/catdb/workerpool"
)

// NamespaceSeparator separates the namespace of a distinct name from its
// local part.
const NamespaceSeparator = "."

// Namespace returns the part of name before the last separator, or "" when
// name has none.
func Namespace(name string) string {
	i := strings.LastIndex(name, NamespaceSeparator)
	if i <= 0 {
		return ""
	}
	return name[:i]
}

// WritePackages groups the package-bearing members by namespace and writes
// one package per namespace that is not stored yet. It returns the number
// of packages written.
func (db *DB) WritePackages(ctx context.Context, members []Entry) (int, error) {
	groups := make(map[string][]Entry)
	seen := make(map[string]bool)
	for _, e := range members {
		if e == nil || !IsPackageBearing(e) || seen[e.DistinctName()] {
			continue
		}
		ns := Namespace(e.DistinctName())
		if ns == "" {
			continue
		}
		seen[e.DistinctName()] = true
		groups[ns] = append(groups[ns], e)
	}
	if len(groups) == 0 {
		return 0, nil
	}

	namespaces := make([]string, 0, len(groups))
	for ns := range groups {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	packages, err := workerpool.RunJobIgnoreNull(ctx, db.pool, namespaces, func(ctx context.Context, ns string) (Entry, error) {
		exists, err := db.Exists(ctx, ns)
		if err != nil || exists {
			return nil, err
		}
		group := groups[ns]
		sort.Slice(group, func(i, j int) bool { return group[i].DistinctName() < group[j].DistinctName() })
		return db.engine.NewPackage(ns, group)
	})
	if err != nil {
		return 0, err
	}
	if err := db.Put(ctx, packages...); err != nil {
		return 0, err
	}
	return len(packages), nil
}
