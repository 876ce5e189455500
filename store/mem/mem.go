// Package mem implements an in-memory revs.Backend.
package mem

import (
	"context"
	"path"
	"sync"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
)

var (
	_ revs.Backend = &Backend{}
	_ revs.Locker  = &Backend{}
)

// Backend is a memory-based implementation of revs.Backend.
// Entries are copied in and out,
// so callers may reuse their buffers.
type Backend struct {
	mu   sync.Mutex
	dirs map[string]map[string][]byte

	lmu   sync.Mutex
	locks map[string]*sync.Mutex
}

// New produces a new Backend.
func New() *Backend {
	return &Backend{
		dirs:  make(map[string]map[string][]byte),
		locks: make(map[string]*sync.Mutex),
	}
}

// Keys lists the keys.
func (b *Backend) Keys(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.dirs))
	for k := range b.dirs {
		out = append(out, k)
	}
	return out, nil
}

// Has tells whether key exists.
func (b *Backend) Has(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.dirs[key]
	return ok, nil
}

// Names lists the entries of key.
func (b *Backend) Names(_ context.Context, key string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir, ok := b.dirs[key]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(dir))
	for name := range dir {
		out = append(out, name)
	}
	return out, nil
}

// Read returns a copy of an entry.
func (b *Backend) Read(_ context.Context, key, name string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.dirs[key][name]
	if !ok {
		return nil, revs.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Create adds an entry.
func (b *Backend) Create(_ context.Context, key, name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir, ok := b.dirs[key]
	if !ok {
		dir = make(map[string][]byte)
		b.dirs[key] = dir
	}
	if _, ok := dir[name]; ok {
		return revs.ErrExists
	}
	dir[name] = append([]byte(nil), data...)
	return nil
}

// Remove deletes an entry.
// The key remains even when its last entry is removed,
// as an emptied directory would.
func (b *Backend) Remove(_ context.Context, key, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.dirs[key], name)
	return nil
}

// Locate returns key/name.
func (b *Backend) Locate(key, name string) string {
	return path.Join(key, name)
}

// Lock takes the lock for key.
// It serializes callers within this process only.
func (b *Backend) Lock(_ context.Context, key string) (func() error, error) {
	b.lmu.Lock()
	m, ok := b.locks[key]
	if !ok {
		m = new(sync.Mutex)
		b.locks[key] = m
	}
	b.lmu.Unlock()

	m.Lock()
	return func() error {
		m.Unlock()
		return nil
	}, nil
}

// Mkdir creates an empty key, as if by mkdir.
// It is useful for reproducing an object directory that holds no revisions.
func (b *Backend) Mkdir(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.dirs[key]; !ok {
		b.dirs[key] = make(map[string][]byte)
	}
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (revs.Backend, error) {
		return New(), nil
	})
}
