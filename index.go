package catdb

import (
	"bytes"
	"context"
	"errors"
	"path"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/catdb/blobstore"
)

// ReadCategoryIndex returns the member hashes of the index named indexName
// of category. A missing index file yields an empty slice.
func (db *DB) ReadCategoryIndex(ctx context.Context, category Entry, indexName string) ([]Hash, error) {
	cfg, err := db.ensureConfig(ctx)
	if err != nil {
		return nil, err
	}
	return db.readIndex(ctx, cfg.Path(category.HashCode(), IndexSuffix(indexName)))
}

func (db *DB) readIndex(ctx context.Context, p string) ([]Hash, error) {
	data, err := db.store.Get(ctx, p)
	if errors.Is(err, blobstore.ErrNotFound) {
		return []Hash{}, nil
	}
	if err != nil {
		return nil, NewIOError("read", p, err)
	}
	return parseIndex(data), nil
}

func parseIndex(data []byte) []Hash {
	lines := bytes.Split(data, []byte{'\n'})
	out := make([]Hash, 0, len(lines))
	for _, line := range lines {
		if line = bytes.TrimSpace(line); len(line) > 0 {
			out = append(out, Hash(line))
		}
	}
	return out
}

func formatIndex(hashes []Hash) []byte {
	var buf bytes.Buffer
	for _, h := range hashes {
		buf.WriteString(string(h))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// indexTarget is one index file an entry is recorded in.
type indexTarget struct {
	category Hash
	index    string
}

// indexTargets resolves the index files e belongs to, following
// super-categories through the store when an IndexSpec includes ancestors.
func (db *DB) indexTargets(ctx context.Context, cfg *Config, e Entry) ([]indexTarget, error) {
	specs := e.IndexSpecs()
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	var targets []indexTarget
	for _, indexName := range names {
		spec := specs[indexName]
		switch spec.Kind {
		case IndexKindCategory:
			v, _ := e.Member(spec.Source)
			for _, category := range refNames(v) {
				targets = append(targets, indexTarget{category: HashOf(category), index: indexName})
				if !spec.IncludeAncestors {
					continue
				}
				ancestors, err := db.ancestors(ctx, cfg, category)
				if err != nil {
					return nil, err
				}
				for _, a := range ancestors {
					targets = append(targets, indexTarget{category: HashOf(a), index: indexName})
				}
			}
		default:
			return nil, NewConfigurationError("", "index "+indexName+" of "+e.DistinctName()+" has unsupported kind "+spec.Kind.String(), nil)
		}
	}
	return targets, nil
}

// ancestors walks the super-categories of the named category. The walk
// stops at a root, at a category that is not stored and at a repeated name.
func (db *DB) ancestors(ctx context.Context, cfg *Config, name string) ([]string, error) {
	var out []string
	visited := map[string]struct{}{name: {}}
	for {
		e, err := db.read(ctx, cfg, HashOf(name))
		if err != nil {
			return nil, err
		}
		c, ok := e.(Category)
		if !ok || c.SuperCategory() == nil {
			return out, nil
		}
		name = c.SuperCategory().Name()
		if _, seen := visited[name]; seen {
			return out, nil
		}
		visited[name] = struct{}{}
		out = append(out, name)
	}
}

func (db *DB) addIndexing(ctx context.Context, cfg *Config, e Entry) error {
	targets, err := db.indexTargets(ctx, cfg, e)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := db.addToIndex(ctx, cfg, t, e.HashCode()); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) removeIndexing(ctx context.Context, cfg *Config, e Entry) error {
	targets, err := db.indexTargets(ctx, cfg, e)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := db.removeFromIndex(ctx, cfg, t, e.HashCode()); err != nil {
			return err
		}
	}
	return nil
}

// addToIndex appends member unless it is already listed.
func (db *DB) addToIndex(ctx context.Context, cfg *Config, t indexTarget, member Hash) (err error) {
	defer func() { db.metrics.RecordIndex("add", err) }()

	unlock := db.indexLocks.lock(string(t.category))
	defer unlock()

	p := cfg.Path(t.category, IndexSuffix(t.index))
	hashes, err := db.readIndex(ctx, p)
	if err != nil {
		return err
	}
	if contains(hashes, member) {
		return nil
	}
	if dir := path.Dir(p); dir != "." {
		if err := db.store.MkdirAll(ctx, dir); err != nil {
			return NewIOError("mkdir", dir, err)
		}
	}
	if err := db.store.Append(ctx, p, formatIndex([]Hash{member})); err != nil {
		return NewIOError("append", p, err)
	}
	db.logger.LogIndex(ctx, "add", t.category, t.index, member)
	return nil
}

// removeFromIndex rewrites the index file without member.
func (db *DB) removeFromIndex(ctx context.Context, cfg *Config, t indexTarget, member Hash) (err error) {
	defer func() { db.metrics.RecordIndex("remove", err) }()

	unlock := db.indexLocks.lock(string(t.category))
	defer unlock()

	p := cfg.Path(t.category, IndexSuffix(t.index))
	hashes, err := db.readIndex(ctx, p)
	if err != nil {
		return err
	}
	kept := hashes[:0]
	for _, h := range hashes {
		if h != member {
			kept = append(kept, h)
		}
	}
	if len(kept) == len(hashes) {
		return nil
	}
	if err := db.store.Put(ctx, p, formatIndex(kept)); err != nil {
		return NewIOError("write", p, err)
	}
	db.logger.LogIndex(ctx, "remove", t.category, t.index, member)
	return nil
}

// contains checks membership through a roaring bitmap of the parsed
// hashes. Lines that do not parse are compared as strings.
func contains(hashes []Hash, member Hash) bool {
	want, err := member.Uint64()
	if err != nil {
		for _, h := range hashes {
			if h == member {
				return true
			}
		}
		return false
	}
	bm := roaring64.New()
	for _, h := range hashes {
		if v, err := h.Uint64(); err == nil {
			bm.Add(v)
		}
	}
	return bm.Contains(want)
}

// keyedMutex serializes index mutations per category hash.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
