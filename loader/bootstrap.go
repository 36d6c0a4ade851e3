package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/workerpool"
)

// BootstrapDatabaseObjects loads every immediate subdirectory of rootPath,
// recursively and one directory at a time in alphabetical order. All
// directories share one session, so a directory may extend the categories
// of the ones loaded before it. logFn, if set, is called before each
// directory and once with a summary.
func BootstrapDatabaseObjects(ctx context.Context, db *catdb.DB, parser catdb.SourceParser, rootPath string, logFn func(string), optFns ...Option) (int, error) {
	if logFn == nil {
		logFn = func(string) {}
	}

	children, err := blobstore.NewLocalStore(rootPath).List(ctx, "")
	if err != nil {
		return 0, catdb.NewIOError("list", rootPath, err)
	}
	var dirs []string
	for _, c := range children {
		if c.IsDir {
			dirs = append(dirs, c.Name)
		}
	}
	sort.Strings(dirs)

	opts := append([]Option{WithSession(db.NewSession())}, optFns...)
	counts, err := workerpool.Run(ctx, 1, dirs, func(ctx context.Context, dir string) (int, error) {
		logFn(fmt.Sprintf("loading %s", dir))
		return LoadDir(ctx, db, parser, filepath.Join(rootPath, dir), true, opts...)
	})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	logFn(fmt.Sprintf("loaded %d objects from %d directories", total, len(dirs)))
	return total, nil
}
