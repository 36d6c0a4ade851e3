package catdb

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/catdb/workerpool"
)

// lookup is a cached lookup outcome. found is false for a cached miss.
type lookup struct {
	entry Entry
	found bool
}

// Session is a memoizing view of a DB owned by one unit of work.
//
// Every lookup outcome is cached, misses included, for the life of the
// session. Concurrent misses on the same key share one store read. A
// Session is safe for concurrent use by the goroutines of its unit of work;
// it is never shared between units.
type Session struct {
	db *DB

	mu     sync.Mutex
	byName map[string]lookup
	byHash map[Hash]lookup
	group  singleflight.Group
}

// NewSession returns an empty session over db.
func (db *DB) NewSession() *Session {
	return &Session{
		db:     db,
		byName: make(map[string]lookup),
		byHash: make(map[Hash]lookup),
	}
}

// DB returns the store behind s.
func (s *Session) DB() *DB { return s.db }

func (s *Session) cached(name string) (lookup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byName[name]
	return l, ok
}

func (s *Session) cachedHash(h Hash) (lookup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byHash[h]
	return l, ok
}

// remember caches e under both keys, or a miss under the keys given.
func (s *Session) remember(name string, h Hash, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rememberLocked(name, h, e)
}

func (s *Session) rememberLocked(name string, h Hash, e Entry) {
	if e != nil {
		l := lookup{entry: e, found: true}
		s.byName[e.DistinctName()] = l
		s.byHash[e.HashCode()] = l
		return
	}
	if name != "" {
		s.byName[name] = lookup{}
	}
	s.byHash[h] = lookup{}
}

// GetIfFound returns the entry named name, or nil if there is none.
func (s *Session) GetIfFound(ctx context.Context, name string) (Entry, error) {
	if l, ok := s.cached(name); ok {
		return l.entry, nil
	}
	v, err, _ := s.group.Do("name:"+name, func() (any, error) {
		if l, ok := s.cached(name); ok {
			return l.entry, nil
		}
		e, err := s.db.GetIfFound(ctx, name)
		if err != nil {
			return nil, err
		}
		s.remember(name, HashOf(name), e)
		return e, nil
	})
	if err != nil || v == nil {
		return nil, err
	}
	return v.(Entry), nil
}

// Get returns the entry named name or a NotFoundError.
func (s *Session) Get(ctx context.Context, name string) (Entry, error) {
	e, err := s.GetIfFound(ctx, name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &NotFoundError{Name: name, Hash: HashOf(name)}
	}
	return e, nil
}

// GetByHash returns the entry stored under h or a NotFoundError.
func (s *Session) GetByHash(ctx context.Context, h Hash) (Entry, error) {
	e, err := s.getByHashIfFound(ctx, h)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &NotFoundError{Hash: h}
	}
	return e, nil
}

func (s *Session) getByHashIfFound(ctx context.Context, h Hash) (Entry, error) {
	if l, ok := s.cachedHash(h); ok {
		return l.entry, nil
	}
	v, err, _ := s.group.Do("hash:"+string(h), func() (any, error) {
		if l, ok := s.cachedHash(h); ok {
			return l.entry, nil
		}
		e, err := s.db.getByHashIfFound(ctx, h)
		if err != nil {
			return nil, err
		}
		s.remember("", h, e)
		return e, nil
	})
	if err != nil || v == nil {
		return nil, err
	}
	return v.(Entry), nil
}

// Put caches entries and writes them to the store.
func (s *Session) Put(ctx context.Context, entries ...Entry) error {
	s.mu.Lock()
	for _, e := range entries {
		s.rememberLocked(e.DistinctName(), e.HashCode(), e)
	}
	s.mu.Unlock()
	return s.db.Put(ctx, entries...)
}

// GetByIndex returns the members of the index named indexName of category
// that pass filter. A nil filter accepts every member. Members listed in
// the index but no longer stored are skipped. The result is unordered.
func (s *Session) GetByIndex(ctx context.Context, category *Ref, indexName string, filter func(Entry) bool) ([]Entry, error) {
	if filter == nil {
		filter = func(Entry) bool { return true }
	}
	c, err := category.Get(ctx, s)
	if err != nil {
		return nil, err
	}
	hashes, err := s.db.ReadCategoryIndex(ctx, c, indexName)
	if err != nil {
		return nil, err
	}

	var (
		cached   []Entry
		uncached []Hash
	)
	s.mu.Lock()
	for _, h := range hashes {
		l, ok := s.byHash[h]
		switch {
		case !ok:
			uncached = append(uncached, h)
		case l.found:
			cached = append(cached, l.entry)
		}
	}
	s.mu.Unlock()

	var result []Entry
	for _, e := range cached {
		if filter(e) {
			result = append(result, e)
		}
	}

	if len(uncached) == 0 {
		return result, nil
	}
	fetched, err := workerpool.RunJobIgnoreNull(ctx, s.db.pool, uncached, func(ctx context.Context, h Hash) (Entry, error) {
		e, err := s.getByHashIfFound(ctx, h)
		if err != nil || e == nil || !filter(e) {
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return append(result, fetched...), nil
}
