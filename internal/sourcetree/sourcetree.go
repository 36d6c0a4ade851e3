// Package sourcetree scans directories of entry source files.
//
// A source file is named after the entry it holds, optionally behind a
// numeric load-order prefix ("03_Animal.json"). Files whose stem ends in
// "Category" hold categories and are loaded before all other files.
package sourcetree

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/hupe1980/catdb/blobstore"
	"github.com/hupe1980/catdb/workerpool"
)

// CategoryMarker ends the stem of every category source file.
const CategoryMarker = "Category"

// File is one source file found by Scan.
type File struct {
	// Path is slash-separated and relative to the scanned directory.
	Path string
	// Name is the distinct name the file must declare.
	Name     string
	Category bool
}

// ExpectedName strips the directory, the load-order prefix and the
// extension from a file name.
func ExpectedName(filename string) string {
	base := path.Base(filename)
	return stripOrderPrefix(strings.TrimSuffix(base, path.Ext(base)))
}

// IsCategory reports whether filename names a category source file.
func IsCategory(filename string) bool {
	return strings.HasSuffix(ExpectedName(filename), CategoryMarker)
}

// HasExt reports whether filename ends in one of exts.
func HasExt(filename string, exts []string) bool {
	ext := path.Ext(filename)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func stripOrderPrefix(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(s) && s[i] == '_' {
		return s[i+1:]
	}
	return s
}

// Scan lists the source files under the root of src. Each directory level
// is listed as one job on pool, so no worker waits on another job of the
// same pool. Files with other extensions are ignored. Both results are
// sorted by file name, then by path.
func Scan(ctx context.Context, pool *workerpool.Pool, src blobstore.BlobStore, recursive bool, exts []string) (categories, entries []File, err error) {
	level := []string{""}
	for len(level) > 0 {
		listings, err := workerpool.RunJob(ctx, pool, level, func(ctx context.Context, dir string) ([]blobstore.DirEntry, error) {
			children, err := src.List(ctx, dir)
			if err != nil {
				return nil, err
			}
			for i := range children {
				children[i].Name = path.Join(dir, children[i].Name)
			}
			return children, nil
		})
		if err != nil {
			return nil, nil, err
		}

		var next []string
		for _, children := range listings {
			for _, c := range children {
				switch {
				case c.IsDir:
					if recursive {
						next = append(next, c.Name)
					}
				case HasExt(c.Name, exts):
					f := File{Path: c.Name, Name: ExpectedName(c.Name), Category: IsCategory(c.Name)}
					if f.Category {
						categories = append(categories, f)
					} else {
						entries = append(entries, f)
					}
				}
			}
		}
		level = next
	}

	sortFiles(categories)
	sortFiles(entries)
	return categories, entries, nil
}

func sortFiles(files []File) {
	sort.Slice(files, func(i, j int) bool {
		bi, bj := path.Base(files[i].Path), path.Base(files[j].Path)
		if bi != bj {
			return bi < bj
		}
		return files[i].Path < files[j].Path
	})
}
