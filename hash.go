package catdb

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash"
)

// HashLen is the width of a Hash in hex digits.
const HashLen = 16

// Hash is the 16 digit lowercase hex rendering of the xxhash64 of an
// entry's distinct name. It addresses the entry on disk.
type Hash string

// HashOf returns the hash of a distinct name.
func HashOf(name string) Hash {
	return Hash(fmt.Sprintf("%016x", xxhash.Sum64([]byte(name))))
}

// Uint64 parses h back into its numeric value.
func (h Hash) Uint64() (uint64, error) {
	if len(h) != HashLen {
		return 0, fmt.Errorf("invalid hash %q: want %d hex digits", string(h), HashLen)
	}
	return strconv.ParseUint(string(h), 16, 64)
}

// Valid reports whether h is a well formed hash.
func (h Hash) Valid() bool {
	_, err := h.Uint64()
	return err == nil
}

func (h Hash) String() string { return string(h) }
