package catdb

import (
	"context"
	"errors"
	"os"
	"path"

	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/codec"
)

const (
	// ConfigFile is the name of the configuration file under the store root.
	ConfigFile = "dbconfig.json"
	// DataDir is the marker directory checked when a store is opened.
	DataDir = "data"
	// EntryExt is the extension of entry files before any compression suffix.
	EntryExt = ".json"

	// maxShardDepth is the number of bytes in a Hash.
	maxShardDepth = HashLen / 2
)

// Config is the configuration record stored with every database.
type Config struct {
	Version string `json:"version"`
	// Sizing is the expected number of entries. It drives the directory
	// fan-out: ShardDepth is floor(log256(Sizing)).
	Sizing          int64             `json:"sizing"`
	PrettyPrint     bool              `json:"prettyPrint"`
	ValidateEntries bool              `json:"validateEntries"`
	Compression     codec.Compression `json:"compression,omitempty"`
}

// DefaultConfig returns the configuration used by the CLI when no flags are
// given.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Sizing:  65536,
	}
}

// ShardDepth returns the number of two digit directory levels above each
// entry file.
func (c Config) ShardDepth() int {
	depth := 0
	for s := c.Sizing; s >= 256 && depth < maxShardDepth; s /= 256 {
		depth++
	}
	return depth
}

// Validate checks the configuration record.
func (c Config) Validate() error {
	if c.Sizing < 0 {
		return NewConfigurationError(ConfigFile, "sizing must not be negative", nil)
	}
	if err := c.Compression.Validate(); err != nil {
		return NewConfigurationError(ConfigFile, "invalid compression", err)
	}
	return nil
}

// EntrySuffix returns the suffix of entry files.
func (c Config) EntrySuffix() string {
	return EntryExt + c.Compression.Ext()
}

// IndexSuffix returns the suffix of the index file named indexName.
func IndexSuffix(indexName string) string {
	return "_" + indexName
}

// Path returns the store-relative path of the file for h. It is a pure
// function of the shard depth, the hash and the suffix.
func (c Config) Path(h Hash, suffix string) string {
	depth := c.ShardDepth()
	elems := make([]string, 0, depth+1)
	s := string(h)
	for i := 0; i < depth && 2*i+2 <= len(s); i++ {
		elems = append(elems, s[2*i:2*i+2])
	}
	elems = append(elems, s+suffix)
	return path.Join(elems...)
}

// Create initializes a new database at dir. It fails if dir already exists.
func Create(dir string, cfg Config) error {
	if _, err := os.Stat(dir); err == nil {
		return NewConfigurationError(dir, "path already exists", os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return NewIOError("stat", dir, err)
	}
	return CreateStore(context.Background(), blobstore.NewLocalStore(dir), cfg)
}

// CreateStore initializes a new database inside store. It fails if the
// store already holds a configuration file.
func CreateStore(ctx context.Context, store blobstore.BlobStore, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	exists, err := store.Exists(ctx, ConfigFile)
	if err != nil {
		return NewIOError("stat", ConfigFile, err)
	}
	if exists {
		return NewConfigurationError(ConfigFile, "database already exists", os.ErrExist)
	}
	if err := store.MkdirAll(ctx, DataDir); err != nil {
		return NewIOError("mkdir", DataDir, err)
	}
	data, err := codec.Marshal(codec.Default, cfg, cfg.PrettyPrint)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, ConfigFile, data); err != nil {
		return NewIOError("write", ConfigFile, err)
	}
	return nil
}
