package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/internal/sourcetree"
	"github.com/hupe1980/catdb/workerpool"
)

// ErrNoParser is returned when neither a parser is given nor the DB's
// engine can parse source files.
var ErrNoParser = errors.New("loader: no source parser")

type options struct {
	session     *catdb.Session
	concurrency int
	logger      *catdb.Logger
	onIngest    func(path string, e catdb.Entry, err error)
	onReady     func()
}

// Option configures a Loader or Watch.
type Option func(*options)

// WithSession resolves super-categories outside the tree through s. By
// default each Loader opens its own session.
func WithSession(s *catdb.Session) Option {
	return func(o *options) {
		o.session = s
	}
}

// WithConcurrency sets the number of files read at once. The loader uses
// its own pool; store writes still go through the DB's pool.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithLogger sets the logger. The default is the DB's logger.
func WithLogger(l *catdb.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithIngestHook is called by Watch after every file it re-ingests, with
// the entry or the error.
func WithIngestHook(fn func(path string, e catdb.Entry, err error)) Option {
	return func(o *options) {
		o.onIngest = fn
	}
}

// WithReadyHook is called by Watch once all directories are watched.
func WithReadyHook(fn func()) Option {
	return func(o *options) {
		o.onReady = fn
	}
}

// Loader loads one source tree into a DB.
type Loader struct {
	db      *catdb.DB
	parser  catdb.SourceParser
	session *catdb.Session
	dir     string
	src     blobstore.BlobStore
	tracker *Tracker
	pool    *workerpool.Pool
	logger  *catdb.Logger

	onIngest func(path string, e catdb.Entry, err error)
	onReady  func()
}

// New returns a Loader for the tree at dirPath. A nil parser selects the
// DB's engine.
func New(db *catdb.DB, parser catdb.SourceParser, dirPath string, optFns ...Option) (*Loader, error) {
	o := options{}
	for _, fn := range optFns {
		fn(&o)
	}
	if parser == nil {
		p, ok := db.Engine().(catdb.SourceParser)
		if !ok {
			return nil, ErrNoParser
		}
		parser = p
	}
	if o.session == nil {
		o.session = db.NewSession()
	}
	if o.logger == nil {
		o.logger = db.Logger()
	}
	return &Loader{
		db:      db,
		parser:  parser,
		session: o.session,
		dir:     dirPath,
		src:     blobstore.NewLocalStore(dirPath),
		tracker: NewTracker(),
		pool:    workerpool.New(o.concurrency),
		logger:  o.logger,

		onIngest: o.onIngest,
		onReady:  o.onReady,
	}, nil
}

// Tracker returns the loader's tracker.
func (l *Loader) Tracker() *Tracker { return l.tracker }

// LoadDir loads the tree at dirPath: all categories first, then all other
// entries, then the namespace packages. It returns the number of files.
func LoadDir(ctx context.Context, db *catdb.DB, parser catdb.SourceParser, dirPath string, recursive bool, optFns ...Option) (int, error) {
	l, err := New(db, parser, dirPath, optFns...)
	if err != nil {
		return 0, err
	}
	return l.Load(ctx, recursive)
}

// Load scans and loads the tree.
func (l *Loader) Load(ctx context.Context, recursive bool) (n int, err error) {
	start := time.Now()
	defer func() {
		l.db.Metrics().RecordLoad(n, time.Since(start), err)
		l.logger.LogLoad(ctx, l.dir, n, err)
	}()

	categories, entries, err := sourcetree.Scan(ctx, l.pool, l.src, recursive, l.parser.Extensions())
	if err != nil {
		return 0, catdb.NewIOError("scan", l.dir, err)
	}
	for _, files := range [][]sourcetree.File{categories, entries} {
		for _, f := range files {
			if err := l.tracker.register(f); err != nil {
				return 0, err
			}
		}
	}

	for _, files := range [][]sourcetree.File{categories, entries} {
		_, err := workerpool.RunJob(ctx, l.pool, files, func(ctx context.Context, f sourcetree.File) (struct{}, error) {
			_, err := l.readEntry(ctx, chain{}, f.Name)
			return struct{}{}, err
		})
		if err != nil {
			return 0, err
		}
	}

	written, err := l.WritePackages(ctx)
	if err != nil {
		return 0, err
	}
	l.logger.LogPackages(ctx, written)
	return len(categories) + len(entries), nil
}

// WritePackages writes the packages of the queued package-bearing entries.
func (l *Loader) WritePackages(ctx context.Context) (int, error) {
	return l.db.WritePackages(ctx, l.tracker.Packages())
}

// readEntry returns the entry named name, loading it from the tree unless
// it is already loaded. Concurrent requests for one name share a single
// load. Names without a source file yield nil.
func (l *Loader) readEntry(ctx context.Context, dc chain, name string) (catdb.Entry, error) {
	requester := dc.current()
	if requester == name {
		return nil, catdb.NewDependencyError(catdb.SelfReference, []string{name}, nil)
	}
	if dc.contains(name) {
		return nil, catdb.NewDependencyError(catdb.Cycle, dc.cycle(name), nil)
	}

	t := l.tracker
	t.mu.Lock()
	if e, ok := t.loaded[name]; ok {
		t.mu.Unlock()
		return e, nil
	}
	f, ok := t.files[name]
	if !ok {
		t.mu.Unlock()
		return nil, nil
	}
	if path := t.waitPathLocked(requester, name); path != nil {
		t.mu.Unlock()
		return nil, catdb.NewDependencyError(catdb.Cycle, path, nil)
	}
	if requester != "" {
		t.waiting[requester] = name
	}
	t.mu.Unlock()
	defer t.clearWaiting(requester)

	ch := t.inflight.DoChan(name, func() (any, error) {
		if e, ok := t.Loaded(name); ok {
			return e, nil
		}
		return l.load(ctx, dc.extend(name), f)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		e, _ := res.Val.(catdb.Entry)
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Tracker) clearWaiting(requester string) {
	if requester == "" {
		return
	}
	t.mu.Lock()
	delete(t.waiting, requester)
	t.mu.Unlock()
}

// load reads one file, resolves its super-category and persists it.
func (l *Loader) load(ctx context.Context, dc chain, f sourcetree.File) (catdb.Entry, error) {
	e, err := catdb.ReadSource(ctx, l.src, l.parser, f.Path, f.Name)
	if err != nil || e == nil {
		return nil, err
	}

	if super := catdb.SuperCategoryName(e); super != "" {
		var s catdb.Entry
		if l.tracker.Has(super) {
			s, err = l.readEntry(ctx, dc, super)
		} else {
			s, err = l.session.GetIfFound(ctx, super)
		}
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, catdb.NewDependencyError(catdb.MissingSuperCategory, []string{e.DistinctName()},
				fmt.Errorf("super-category %s not found", super))
		}
	}

	if err := l.db.Put(ctx, e); err != nil {
		return nil, err
	}
	l.tracker.markLoaded(e)
	return e, nil
}
