package blobstore

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Op names a BlobStore operation for fault injection.
type Op uint8

const (
	OpGet Op = iota + 1
	OpPut
	OpAppend
	OpDelete
	OpExists
	OpMkdir
	OpList
)

// ErrInjected is the default error returned by a triggered Fault.
var ErrInjected = errors.New("injected fault error")

// Fault defines specific failure behavior.
type Fault struct {
	Op  Op    // Operation to fail. Zero matches every operation.
	Err error // Error to return. Defaults to ErrInjected.
	// After lets this many matching calls succeed before failing. 0 fails immediately.
	After int
}

// FaultyStore is a BlobStore wrapper that can inject errors.
type FaultyStore struct {
	inner BlobStore
	mu    sync.Mutex
	rules map[string]*faultRule // Name pattern -> rule
	calls map[Op]int
}

type faultRule struct {
	Fault
	seen int
}

// NewFaultyStore creates a new FaultyStore wrapping the provided store (or a MemoryStore if nil).
func NewFaultyStore(inner BlobStore) *FaultyStore {
	if inner == nil {
		inner = NewMemoryStore()
	}
	return &FaultyStore{
		inner: inner,
		rules: make(map[string]*faultRule),
		calls: make(map[Op]int),
	}
}

// AddRule adds a fault injection rule for names containing pattern.
// An empty pattern matches every name.
func (f *FaultyStore) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = &faultRule{Fault: fault}
}

// ClearRules removes all rules.
func (f *FaultyStore) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = make(map[string]*faultRule)
}

// Calls returns how many times op was invoked.
func (f *FaultyStore) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultyStore) check(op Op, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	for pattern, rule := range f.rules {
		if rule.Op != 0 && rule.Op != op {
			continue
		}
		if !strings.Contains(name, pattern) {
			continue
		}
		rule.seen++
		if rule.seen <= rule.After {
			continue
		}
		if rule.Err != nil {
			return rule.Err
		}
		return ErrInjected
	}
	return nil
}

func (f *FaultyStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := f.check(OpGet, name); err != nil {
		return nil, err
	}
	return f.inner.Get(ctx, name)
}

func (f *FaultyStore) Put(ctx context.Context, name string, data []byte) error {
	if err := f.check(OpPut, name); err != nil {
		return err
	}
	return f.inner.Put(ctx, name, data)
}

func (f *FaultyStore) Append(ctx context.Context, name string, data []byte) error {
	if err := f.check(OpAppend, name); err != nil {
		return err
	}
	return f.inner.Append(ctx, name, data)
}

func (f *FaultyStore) Delete(ctx context.Context, name string) error {
	if err := f.check(OpDelete, name); err != nil {
		return err
	}
	return f.inner.Delete(ctx, name)
}

func (f *FaultyStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := f.check(OpExists, name); err != nil {
		return false, err
	}
	return f.inner.Exists(ctx, name)
}

func (f *FaultyStore) MkdirAll(ctx context.Context, dir string) error {
	if err := f.check(OpMkdir, dir); err != nil {
		return err
	}
	return f.inner.MkdirAll(ctx, dir)
}

func (f *FaultyStore) List(ctx context.Context, dir string) ([]DirEntry, error) {
	if err := f.check(OpList, dir); err != nil {
		return nil, err
	}
	return f.inner.List(ctx, dir)
}
