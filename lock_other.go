//go:build !unix

package catdb

import "io"

type nopLock struct{}

func (nopLock) Close() error { return nil }

// lockFile is a no-op where flock is not available.
func lockFile(string) (io.Closer, error) {
	return nopLock{}, nil
}
