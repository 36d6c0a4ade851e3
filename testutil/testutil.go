package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// ZooFixture is a source tree with one root category, two subcategories
// (the deepest two directory levels down) and two package-bearing entries
// of the deepest category.
var ZooFixture = map[string]string{
	"01_AnimalCategory.json": `{"name": "AnimalCategory"}`,
	"mammals/02_MammalCategory.json": `{
		"name": "MammalCategory",
		"superCategory": "AnimalCategory"
	}`,
	"mammals/felines/03_FelineCategory.yaml": "name: FelineCategory\nsuperCategory: MammalCategory\n",
	"zoo.Lion.json": `{
		"name": "zoo.Lion",
		"categories": ["FelineCategory"],
		"package": true,
		"properties": {"legs": 4}
	}`,
	"zoo.Tiger.jsonc": `{
		// striped
		"name": "zoo.Tiger",
		"categories": ["FelineCategory"],
		"package": true,
		"properties": {"legs": 4},
	}`,
}

// CycleFixture holds two categories that are each other's super-category.
var CycleFixture = map[string]string{
	"ACategory.json": `{"name": "ACategory", "superCategory": "BCategory"}`,
	"BCategory.json": `{"name": "BCategory", "superCategory": "ACategory"}`,
}

// WriteTree writes files below dir. Keys are slash-separated paths.
func WriteTree(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz"

// Names returns n distinct random names of the given length, each prefixed
// with prefix.
func (r *RNG) Names(prefix string, n, length int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	buf := make([]byte, length)
	for len(out) < n {
		for i := range buf {
			buf[i] = nameAlphabet[r.rand.Intn(len(nameAlphabet))]
		}
		name := prefix + string(buf)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
