package catdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/catdb/blobstore"
)

// ReadSource reads and parses one source file from src and checks that the
// declared name matches expectedName. A missing file yields a nil entry.
func ReadSource(ctx context.Context, src blobstore.BlobStore, parser SourceParser, path, expectedName string) (Entry, error) {
	data, err := src.Get(ctx, path)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, NewIOError("read", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidSource, path)
	}

	e, err := parser.ParseSource(path, data)
	if err != nil {
		return nil, err
	}
	if e == nil || e.DistinctName() == "" {
		return nil, fmt.Errorf("%w: %s does not hold a named object", ErrInvalidSource, path)
	}
	if e.DistinctName() != expectedName {
		return nil, NewDependencyError(NameMismatch, []string{expectedName, e.DistinctName()},
			fmt.Errorf("%s declares %q", path, e.DistinctName()))
	}
	return e, nil
}

// SuperCategoryName returns the name of e's super-category, or "" when e is
// not a category or is a root.
func SuperCategoryName(e Entry) string {
	if c, ok := e.(Category); ok {
		if ref := c.SuperCategory(); ref != nil {
			return ref.Name()
		}
	}
	return ""
}

// IsPackageBearing reports whether e contributes to its namespace package.
func IsPackageBearing(e Entry) bool {
	pm, ok := e.(PackageMember)
	return ok && pm.PackageBearing()
}

// sourceParser returns the engine as a SourceParser, or a JSON-only parser
// over Engine.Parse.
func (db *DB) sourceParser() SourceParser {
	if p, ok := db.engine.(SourceParser); ok {
		return p
	}
	return engineParser{db.engine}
}

type engineParser struct {
	engine Engine
}

func (engineParser) Extensions() []string { return []string{EntryExt} }

func (p engineParser) ParseSource(path string, data []byte) (Entry, error) {
	e, err := p.engine.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, path, err)
	}
	return e, nil
}
