package catdb

import (
	"log/slog"

	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/codec"
	"github.com/hupe1980/catdb/workerpool"
)

type options struct {
	logger        *Logger
	concurrency   int
	pool          *workerpool.Pool
	store         blobstore.BlobStore
	readCache     int64
	ioLimit       int64
	maxOpenFiles  int64
	codec         codec.Codec
	exclusiveLock bool
	metrics       MetricsCollector
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithConcurrency sets the number of store operations a DB keeps
// outstanding at once. Ignored when WithPool is given.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithPool shares an existing pool. Several DBs may share one pool; the
// ceiling then applies to all of them together.
func WithPool(p *workerpool.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithBlobStore replaces the local filesystem under root. The resource
// options below only apply to the default local store.
func WithBlobStore(s blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithReadCache keeps up to capacity bytes of recently read files in memory.
func WithReadCache(capacity int64) Option {
	return func(o *options) {
		o.readCache = capacity
	}
}

// WithIOLimit throttles file reads and writes to bytesPerSec.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithMaxOpenFiles bounds the number of files open at once.
func WithMaxOpenFiles(n int64) Option {
	return func(o *options) {
		o.maxOpenFiles = n
	}
}

// WithCodec configures the codec used for the configuration file.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector sets the collector notified of puts, lookups,
// deletes, index mutations and loads. The default records nothing.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithExclusiveLock takes an advisory lock on <root>/LOCK when the
// configuration is first loaded and holds it until Close. A second process
// opening the same root with this option fails.
func WithExclusiveLock() Option {
	return func(o *options) {
		o.exclusiveLock = true
	}
}
