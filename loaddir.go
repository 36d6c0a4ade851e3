package catdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/internal/sourcetree"
	"github.com/hupe1980/catdb/workerpool"
)

// MaxLoadRounds bounds the category rounds of LoadDir. Categories still
// waiting for their super-category afterwards are reported as a cycle.
const MaxLoadRounds = 10

// LoadDir loads every source file under dirPath and returns the number of
// files loaded.
//
// Categories are written first, in rounds: a category is written once its
// super-category is stored or is verified to exist already. Plain entries
// follow, then one package per namespace of the package-bearing entries.
func (db *DB) LoadDir(ctx context.Context, dirPath string, recursive bool) (n int, err error) {
	start := time.Now()
	defer func() {
		db.metrics.RecordLoad(n, time.Since(start), err)
		db.logger.LogLoad(ctx, dirPath, n, err)
	}()

	if _, err := db.ensureConfig(ctx); err != nil {
		return 0, err
	}
	parser := db.sourceParser()
	src := blobstore.NewLocalStore(dirPath, blobstore.WithController(db.rc))

	catFiles, entryFiles, err := sourcetree.Scan(ctx, db.pool, src, recursive, parser.Extensions())
	if err != nil {
		return 0, NewIOError("scan", dirPath, err)
	}

	categories, err := db.readSources(ctx, src, parser, catFiles)
	if err != nil {
		return 0, err
	}
	if err := db.putCategories(ctx, categories); err != nil {
		return 0, err
	}

	entries, err := db.readSources(ctx, src, parser, entryFiles)
	if err != nil {
		return 0, err
	}
	if err := db.Put(ctx, entries...); err != nil {
		return 0, err
	}

	written, err := db.WritePackages(ctx, append(categories, entries...))
	if err != nil {
		return 0, err
	}
	db.logger.LogPackages(ctx, written)
	return len(catFiles) + len(entryFiles), nil
}

// readSources parses files concurrently and returns the entries in file
// order.
func (db *DB) readSources(ctx context.Context, src blobstore.BlobStore, parser SourceParser, files []sourcetree.File) ([]Entry, error) {
	idx := make([]int, len(files))
	for i := range idx {
		idx[i] = i
	}
	out := make([]Entry, len(files))
	_, err := workerpool.RunJob(ctx, db.pool, idx, func(ctx context.Context, i int) (struct{}, error) {
		e, err := ReadSource(ctx, src, parser, files[i].Path, files[i].Name)
		if err != nil {
			return struct{}{}, err
		}
		if e == nil {
			return struct{}{}, NewIOError("read", files[i].Path, blobstore.ErrNotFound)
		}
		out[i] = e
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// putCategories writes categories in dependency rounds.
func (db *DB) putCategories(ctx context.Context, categories []Entry) error {
	inBatch := make(map[string]bool, len(categories))
	for _, c := range categories {
		inBatch[c.DistinctName()] = true
	}
	available := make(map[string]bool, len(categories))

	pending := categories
	for round := 0; round < MaxLoadRounds && len(pending) > 0; round++ {
		var ready, future, undecided []Entry
		for _, c := range pending {
			switch super := SuperCategoryName(c); {
			case super == "" || available[super]:
				ready = append(ready, c)
			case inBatch[super]:
				future = append(future, c)
			default:
				undecided = append(undecided, c)
			}
		}

		missing, err := workerpool.RunJobIgnoreNull(ctx, db.pool, undecided, func(ctx context.Context, c Entry) (string, error) {
			ok, err := db.Exists(ctx, SuperCategoryName(c))
			if err != nil || ok {
				return "", err
			}
			return c.DistinctName(), nil
		})
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			supers := make([]string, len(missing))
			for i, name := range missing {
				for _, c := range undecided {
					if c.DistinctName() == name {
						supers[i] = SuperCategoryName(c)
					}
				}
			}
			return NewDependencyError(MissingSuperCategory, missing,
				fmt.Errorf("super-categories not found: %s", strings.Join(supers, ", ")))
		}

		batch := append(ready, undecided...)
		if len(batch) == 0 {
			break
		}
		if err := db.Put(ctx, batch...); err != nil {
			return err
		}
		for _, c := range batch {
			available[c.DistinctName()] = true
		}
		pending = future
	}

	if len(pending) > 0 {
		names := make([]string, len(pending))
		for i, c := range pending {
			names[i] = c.DistinctName()
		}
		sort.Strings(names)
		return NewDependencyError(Cycle, names, nil)
	}
	return nil
}
