package loader

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/internal/sourcetree"
)

// Tracker holds the state of one bulk load: the source file of every name
// in the tree, the entries loaded so far, the reads in flight and the
// package-bearing entries queued for WritePackages.
type Tracker struct {
	mu       sync.Mutex
	files    map[string]sourcetree.File
	loaded   map[string]catdb.Entry
	inflight singleflight.Group
	// waiting maps a name being loaded to the name it currently waits for.
	waiting  map[string]string
	packages []catdb.Entry
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		files:   make(map[string]sourcetree.File),
		loaded:  make(map[string]catdb.Entry),
		waiting: make(map[string]string),
	}
}

func (t *Tracker) register(f sourcetree.File) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.files[f.Name]; ok {
		return fmt.Errorf("%w: %s is declared by %s and %s", catdb.ErrInvalidSource, f.Name, prev.Path, f.Path)
	}
	t.files[f.Name] = f
	return nil
}

// Has reports whether name has a source file in the tree.
func (t *Tracker) Has(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.files[name]
	return ok
}

// Loaded returns the entry loaded for name.
func (t *Tracker) Loaded(name string) (catdb.Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.loaded[name]
	return e, ok
}

// LoadedNames returns the sorted names of all loaded entries.
func (t *Tracker) LoadedNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.loaded))
	for name := range t.loaded {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Packages returns the queued package-bearing entries.
func (t *Tracker) Packages() []catdb.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]catdb.Entry(nil), t.packages...)
}

func (t *Tracker) markLoaded(e catdb.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded[e.DistinctName()] = e
	if catdb.IsPackageBearing(e) {
		t.packages = append(t.packages, e)
	}
}

// waitPathLocked follows the wait-for edges from target. It returns the
// closed path when they lead back to requester, nil otherwise.
func (t *Tracker) waitPathLocked(requester, target string) []string {
	if requester == "" {
		return nil
	}
	path := []string{requester, target}
	for x := target; len(path) <= len(t.waiting)+2; {
		next, ok := t.waiting[x]
		if !ok {
			return nil
		}
		path = append(path, next)
		if next == requester {
			return path
		}
		x = next
	}
	return nil
}
