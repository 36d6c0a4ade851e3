package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/hupe1980/catdb/internal/resource"
)

// LocalStore implements BlobStore using the local file system.
type LocalStore struct {
	root string
	rc   *resource.Controller
	perm os.FileMode
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithController bounds open files and IO throughput through rc.
func WithController(rc *resource.Controller) LocalOption {
	return func(s *LocalStore) {
		s.rc = rc
	}
}

// WithFileMode sets the permission bits used for new files.
func WithFileMode(perm os.FileMode) LocalOption {
	return func(s *LocalStore) {
		s.perm = perm
	}
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string, optFns ...LocalOption) *LocalStore {
	s := &LocalStore{root: root, perm: 0o644}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// Root returns the directory the store is rooted at.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(Clean(name)))
}

// Get reads the whole blob.
func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := s.rc.AcquireFile(ctx); err != nil {
		return nil, err
	}
	defer s.rc.ReleaseFile()

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, err
	}
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Put replaces the whole blob.
//
// Data is written to a temporary file in the target directory and renamed into
// place, so readers never observe a partially written blob.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := s.rc.AcquireFile(ctx); err != nil {
		return err
	}
	defer s.rc.ReleaseFile()

	target := s.path(name)
	f, err := os.CreateTemp(filepath.Dir(target), ".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		return errors.Join(err, f.Close(), os.Remove(tmp))
	}
	if err := f.Close(); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	if err := os.Chmod(tmp, s.perm); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	if err := os.Rename(tmp, target); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	return nil
}

// Append appends data to the blob, creating it if needed.
func (s *LocalStore) Append(ctx context.Context, name string, data []byte) error {
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := s.rc.AcquireFile(ctx); err != nil {
		return err
	}
	defer s.rc.ReleaseFile()

	f, err := os.OpenFile(s.path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, s.perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}

// Delete removes a blob.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	return os.Remove(s.path(name))
}

// Exists reports whether a blob or directory exists.
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// MkdirAll creates a directory and all missing parents.
func (s *LocalStore) MkdirAll(_ context.Context, dir string) error {
	return os.MkdirAll(s.path(dir), 0o755)
}

// List returns the immediate children of a directory.
func (s *LocalStore) List(ctx context.Context, dir string) ([]DirEntry, error) {
	if err := s.rc.AcquireFile(ctx); err != nil {
		return nil, err
	}
	defer s.rc.ReleaseFile()

	entries, err := os.ReadDir(s.path(dir))
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			if fi, err := os.Stat(filepath.Join(s.path(dir), e.Name())); err == nil {
				isDir = fi.IsDir()
			}
		}
		out = append(out, DirEntry{Name: e.Name(), IsDir: isDir})
	}
	return out, nil
}
