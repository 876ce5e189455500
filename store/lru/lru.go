// Package lru implements a revs.Backend that acts as a least-recently-used cache
// for the entries of a nested Backend.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
)

var (
	_ revs.Backend = &Backend{}
	_ revs.Wrapper = &Backend{}
)

// Backend implements a memory-based least-recently-used cache for a revs.Backend.
//
// Only entry contents are cached.
// Entries are immutable once created,
// so a cached entry is never stale,
// only possibly deleted.
// Listings always pass through to the nested Backend,
// which keeps the choice of latest revision fresh.
type Backend struct {
	c *lru.Cache // entryKey->[]byte
	b revs.Backend
}

type entryKey struct {
	key, name string
}

// New produces a new Backend backed by b and caching up to size entries.
func New(b revs.Backend, size int) (*Backend, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "creating cache")
	}
	return &Backend{b: b, c: c}, nil
}

// Unwrap returns the nested Backend.
func (b *Backend) Unwrap() revs.Backend {
	return b.b
}

// Read returns an entry from the cache if present,
// otherwise from the nested Backend.
func (b *Backend) Read(ctx context.Context, key, name string) ([]byte, error) {
	k := entryKey{key: key, name: name}
	if got, ok := b.c.Get(k); ok {
		return append([]byte(nil), got.([]byte)...), nil
	}
	data, err := b.b.Read(ctx, key, name)
	if err != nil {
		return nil, err
	}
	b.c.Add(k, append([]byte(nil), data...))
	return data, nil
}

// Create passes through to the nested Backend and caches the new entry.
func (b *Backend) Create(ctx context.Context, key, name string, data []byte) error {
	if err := b.b.Create(ctx, key, name, data); err != nil {
		return err
	}
	b.c.Add(entryKey{key: key, name: name}, append([]byte(nil), data...))
	return nil
}

// Remove evicts the entry and removes it from the nested Backend.
func (b *Backend) Remove(ctx context.Context, key, name string) error {
	b.c.Remove(entryKey{key: key, name: name})
	return b.b.Remove(ctx, key, name)
}

// Keys passes through to the nested Backend.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	return b.b.Keys(ctx)
}

// Has passes through to the nested Backend.
func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	return b.b.Has(ctx, key)
}

// Names passes through to the nested Backend.
func (b *Backend) Names(ctx context.Context, key string) ([]string, error) {
	return b.b.Names(ctx, key)
}

// Locate passes through to the nested Backend.
func (b *Backend) Locate(key, name string) string {
	return b.b.Locate(key, name)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (revs.Backend, error) {
		size, ok, err := store.Int(conf, "size")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, err := store.CreateNested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, size)
	})
}
