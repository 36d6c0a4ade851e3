package loader

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/internal/sourcetree"
)

// Watch re-ingests source files under dirPath whenever they are created or
// written, until ctx is done. Each file is read and put on its own;
// overwriting an entry does not re-index it and removed files stay in the
// store. Errors on single files are logged and reported to the ingest hook.
func Watch(ctx context.Context, db *catdb.DB, parser catdb.SourceParser, dirPath string, optFns ...Option) error {
	l, err := New(db, parser, dirPath, optFns...)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := addTree(w, dirPath); err != nil {
		return catdb.NewIOError("watch", dirPath, err)
	}
	if l.onReady != nil {
		l.onReady()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			l.handle(ctx, w, event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.WarnContext(ctx, "watch error", "dir", dirPath, "error", err)
		}
	}
}

func (l *Loader) handle(ctx context.Context, w *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := addTree(w, event.Name); err != nil {
				l.logger.WarnContext(ctx, "watch failed", "dir", event.Name, "error", err)
			}
		}
		return
	}
	if !sourcetree.HasExt(event.Name, l.parser.Extensions()) {
		return
	}
	rel, err := filepath.Rel(l.dir, event.Name)
	if err != nil {
		return
	}
	rel = blobstore.Clean(filepath.ToSlash(rel))

	e, err := l.ingest(ctx, rel)
	if err != nil {
		l.logger.ErrorContext(ctx, "ingest failed", "path", rel, "error", err)
	} else if e != nil {
		l.logger.InfoContext(ctx, "ingested", "path", rel, "name", e.DistinctName())
	}
	if l.onIngest != nil {
		l.onIngest(rel, e, err)
	}
}

func (l *Loader) ingest(ctx context.Context, rel string) (catdb.Entry, error) {
	e, err := catdb.ReadSource(ctx, l.src, l.parser, rel, sourcetree.ExpectedName(rel))
	if err != nil || e == nil {
		return nil, err
	}
	if err := l.db.Put(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// addTree watches root and every directory below it; fsnotify watches are
// not recursive.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
