package catdb

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/codec"
	"github.com/hupe1980/catdb/internal/resource"
	"github.com/hupe1980/catdb/workerpool"
)

// LockFile is the name of the advisory lock file taken by WithExclusiveLock.
const LockFile = "LOCK"

// DB is a sharded, hash-addressed store of entries.
//
// A DB is safe for concurrent use. Every operation first loads the
// configuration; the load is shared by concurrent callers and memoized once
// it succeeds.
type DB struct {
	root    string
	engine  Engine
	store   blobstore.BlobStore
	pool    *workerpool.Pool
	codec   codec.Codec
	logger  *Logger
	metrics MetricsCollector
	rc      *resource.Controller

	exclusive bool

	mu     sync.Mutex
	cfg    *Config
	lock   io.Closer
	closed bool

	cfgGroup   singleflight.Group
	indexLocks keyedMutex
}

// Open returns a DB rooted at root. Nothing is read until the first
// operation.
func Open(root string, engine Engine, optFns ...Option) *DB {
	o := options{
		logger:  NoopLogger(),
		codec:   codec.Default,
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&o)
	}

	db := &DB{
		root:      root,
		engine:    engine,
		store:     o.store,
		pool:      o.pool,
		codec:     o.codec,
		logger:    o.logger.WithRoot(root),
		metrics:   o.metrics,
		exclusive: o.exclusiveLock,
	}
	if db.pool == nil {
		db.pool = workerpool.New(o.concurrency)
	}
	if db.store == nil {
		db.rc = resource.NewController(resource.Config{
			MemoryLimitBytes:   o.readCache,
			MaxOpenFiles:       o.maxOpenFiles,
			IOLimitBytesPerSec: o.ioLimit,
		})
		db.store = blobstore.NewLocalStore(root, blobstore.WithController(db.rc))
	}
	if o.readCache > 0 {
		db.store = blobstore.NewCachingStore(db.store, o.readCache, db.rc)
	}
	return db
}

// Root returns the directory the DB was opened at.
func (db *DB) Root() string { return db.root }

// Engine returns the engine entries are parsed with.
func (db *DB) Engine() Engine { return db.engine }

// Pool returns the pool bounding the DB's outstanding operations.
func (db *DB) Pool() *workerpool.Pool { return db.pool }

// Store returns the underlying blob store.
func (db *DB) Store() blobstore.BlobStore { return db.store }

// Logger returns the DB's logger.
func (db *DB) Logger() *Logger { return db.logger }

// Metrics returns the DB's metrics collector.
func (db *DB) Metrics() MetricsCollector { return db.metrics }

// Config loads the configuration if needed and returns a copy.
func (db *DB) Config(ctx context.Context) (Config, error) {
	cfg, err := db.ensureConfig(ctx)
	if err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

func (db *DB) ensureConfig(ctx context.Context) (*Config, error) {
	db.mu.Lock()
	cfg, closed := db.cfg, db.closed
	db.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if cfg != nil {
		return cfg, nil
	}

	v, err, _ := db.cfgGroup.Do("config", func() (any, error) {
		db.mu.Lock()
		cfg := db.cfg
		db.mu.Unlock()
		if cfg != nil {
			return cfg, nil
		}

		cfg, err := db.loadConfig(ctx)
		db.logger.LogConfig(ctx, cfg, err)
		if err != nil {
			return nil, err
		}

		var lock io.Closer
		if db.exclusive {
			if lock, err = lockFile(filepath.Join(db.root, LockFile)); err != nil {
				return nil, NewConfigurationError(db.root, "database is locked", err)
			}
		}

		db.mu.Lock()
		defer db.mu.Unlock()
		if db.closed {
			if lock != nil {
				_ = lock.Close()
			}
			return nil, ErrClosed
		}
		db.cfg, db.lock = cfg, lock
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Config), nil
}

func (db *DB) loadConfig(ctx context.Context) (*Config, error) {
	ok, err := db.store.Exists(ctx, "")
	if err != nil {
		return nil, NewConfigurationError(db.root, "cannot access root", err)
	}
	if !ok {
		return nil, NewConfigurationError(db.root, "root path does not exist", nil)
	}
	if ok, err = db.store.Exists(ctx, DataDir); err != nil || !ok {
		return nil, NewConfigurationError(db.root, "missing data directory", err)
	}

	data, err := db.store.Get(ctx, ConfigFile)
	if err != nil {
		return nil, NewConfigurationError(ConfigFile, "cannot read configuration", err)
	}
	var cfg Config
	if err := db.codec.Unmarshal(data, &cfg); err != nil {
		return nil, NewConfigurationError(ConfigFile, "cannot parse configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the filesystem path of the file for h. An empty suffix
// selects the entry file.
func (db *DB) Path(ctx context.Context, h Hash, suffix string) (string, error) {
	cfg, err := db.ensureConfig(ctx)
	if err != nil {
		return "", err
	}
	if suffix == "" {
		suffix = cfg.EntrySuffix()
	}
	return filepath.Join(db.root, filepath.FromSlash(cfg.Path(h, suffix))), nil
}

// GetIfFound returns the entry named name, or nil if there is none.
func (db *DB) GetIfFound(ctx context.Context, name string) (Entry, error) {
	cfg, err := db.ensureConfig(ctx)
	if err != nil {
		return nil, err
	}
	return db.read(ctx, cfg, HashOf(name))
}

// Get returns the entry named name or a NotFoundError.
func (db *DB) Get(ctx context.Context, name string) (Entry, error) {
	e, err := db.GetIfFound(ctx, name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &NotFoundError{Name: name, Hash: HashOf(name)}
	}
	return e, nil
}

// GetByHash returns the entry stored under h or a NotFoundError.
func (db *DB) GetByHash(ctx context.Context, h Hash) (Entry, error) {
	e, err := db.getByHashIfFound(ctx, h)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &NotFoundError{Hash: h}
	}
	return e, nil
}

func (db *DB) getByHashIfFound(ctx context.Context, h Hash) (Entry, error) {
	cfg, err := db.ensureConfig(ctx)
	if err != nil {
		return nil, err
	}
	return db.read(ctx, cfg, h)
}

// Exists reports whether an entry named name is stored.
func (db *DB) Exists(ctx context.Context, name string) (bool, error) {
	cfg, err := db.ensureConfig(ctx)
	if err != nil {
		return false, err
	}
	p := cfg.Path(HashOf(name), cfg.EntrySuffix())
	ok, err := db.store.Exists(ctx, p)
	if err != nil {
		return false, NewIOError("stat", p, err)
	}
	return ok, nil
}

// read returns nil when no file is stored under h.
func (db *DB) read(ctx context.Context, cfg *Config, h Hash) (e Entry, err error) {
	start := time.Now()
	defer func() { db.metrics.RecordGet(time.Since(start), e != nil, err) }()

	p := cfg.Path(h, cfg.EntrySuffix())
	data, err := db.store.Get(ctx, p)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, NewIOError("read", p, err)
	}
	if data, err = cfg.Compression.Decompress(data); err != nil {
		return nil, NewIOError("decompress", p, err)
	}
	if e, err = db.engine.Parse(data); err != nil {
		return nil, NewIOError("parse", p, err)
	}
	return e, nil
}

// Put writes entries concurrently through the DB's pool. An entry is added
// to its indices only when its file did not exist before; overwriting an
// entry does not re-index it.
func (db *DB) Put(ctx context.Context, entries ...Entry) error {
	cfg, err := db.ensureConfig(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = workerpool.RunJob(ctx, db.pool, entries, func(ctx context.Context, e Entry) (struct{}, error) {
		t := time.Now()
		created, err := db.put(ctx, cfg, e)
		db.metrics.RecordPut(time.Since(t), created, err)
		db.logger.LogPut(ctx, e.DistinctName(), e.HashCode(), created, err)
		return struct{}{}, err
	})
	failed := 0
	if err != nil {
		failed = len(entries)
	}
	db.metrics.RecordBatchPut(len(entries), failed, time.Since(start))
	return err
}

func (db *DB) put(ctx context.Context, cfg *Config, e Entry) (bool, error) {
	if cfg.ValidateEntries {
		if err := db.validate(e); err != nil {
			return false, err
		}
	}

	p := cfg.Path(e.HashCode(), cfg.EntrySuffix())
	if dir := path.Dir(p); dir != "." {
		if err := db.store.MkdirAll(ctx, dir); err != nil {
			return false, NewIOError("mkdir", dir, err)
		}
	}
	existed, err := db.store.Exists(ctx, p)
	if err != nil {
		return false, NewIOError("stat", p, err)
	}

	data, err := db.engine.Serialize(e, cfg.PrettyPrint)
	if err != nil {
		return false, err
	}
	if data, err = cfg.Compression.Compress(data); err != nil {
		return false, err
	}
	if err := db.store.Put(ctx, p, data); err != nil {
		return false, NewIOError("write", p, err)
	}

	if existed {
		return false, nil
	}
	return true, db.addIndexing(ctx, cfg, e)
}

func (db *DB) validate(e Entry) error {
	if e.DistinctName() == "" {
		return NewConfigurationError("", "entry has no distinct name", nil)
	}
	if want := HashOf(e.DistinctName()); e.HashCode() != want {
		return NewConfigurationError("", "entry "+e.DistinctName()+" has hash "+string(e.HashCode())+", want "+string(want), nil)
	}
	for name, spec := range e.IndexSpecs() {
		if spec.Kind != IndexKindCategory {
			return NewConfigurationError("", "index "+name+" of "+e.DistinctName()+" has unsupported kind "+spec.Kind.String(), nil)
		}
	}
	if v, ok := db.engine.(Validator); ok {
		return v.Validate(e)
	}
	return nil
}

// Delete removes e from its indices and then removes its file.
func (db *DB) Delete(ctx context.Context, e Entry) (err error) {
	start := time.Now()
	defer func() {
		db.metrics.RecordDelete(time.Since(start), err)
		db.logger.LogDelete(ctx, e.DistinctName(), err)
	}()

	cfg, err := db.ensureConfig(ctx)
	if err != nil {
		return err
	}
	notFound := &NotFoundError{Name: e.DistinctName(), Hash: e.HashCode()}

	p := cfg.Path(e.HashCode(), cfg.EntrySuffix())
	ok, err := db.store.Exists(ctx, p)
	if err != nil {
		return NewIOError("stat", p, err)
	}
	if !ok {
		return notFound
	}
	if err := db.removeIndexing(ctx, cfg, e); err != nil {
		return err
	}
	if err := db.store.Delete(ctx, p); err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return notFound
		}
		return NewIOError("delete", p, err)
	}
	return nil
}

// Close releases the exclusive lock, if held. Later operations fail with
// ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	if db.lock != nil {
		err := db.lock.Close()
		db.lock = nil
		return err
	}
	return nil
}
