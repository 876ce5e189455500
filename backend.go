package revs

import "context"

// Backend is the storage beneath a Store:
// a set of keyed directories,
// each holding named, immutable entries.
//
// A Backend does no sorting or filtering.
// Those belong to Store,
// so every Backend orders "latest" the same way.
type Backend interface {
	// Keys lists the top-level entries, in any order.
	Keys(context.Context) ([]string, error)

	// Has tells whether the directory for key exists.
	Has(ctx context.Context, key string) (bool, error)

	// Names lists the entries in the directory for key, in any order.
	// It returns nil and no error if the directory does not exist.
	Names(ctx context.Context, key string) ([]string, error)

	// Read returns the contents of an entry.
	// It returns ErrNotFound if there is no such entry.
	Read(ctx context.Context, key, name string) ([]byte, error)

	// Create adds a new entry,
	// creating the directory for key if needed.
	// It returns ErrExists if the entry already exists.
	// The entry must not become visible to Names or Read
	// until its contents are complete.
	Create(ctx context.Context, key, name string, data []byte) error

	// Remove deletes an entry.
	// Removing a non-existent entry is not an error.
	Remove(ctx context.Context, key, name string) error

	// Locate returns a human-readable location for an entry,
	// such as a file path.
	Locate(key, name string) string
}

// Locker is implemented by Backends that can serialize
// access to a single key across callers.
type Locker interface {
	// Lock blocks until the lock for key is held.
	// The caller must call the returned function to release it.
	Lock(ctx context.Context, key string) (unlock func() error, err error)
}

// Wrapper is implemented by Backends that decorate another Backend.
type Wrapper interface {
	Unwrap() Backend
}

// LockerOf finds a Locker in b or in the chain of Backends it wraps.
func LockerOf(b Backend) (Locker, bool) {
	for b != nil {
		if l, ok := b.(Locker); ok {
			return l, true
		}
		w, ok := b.(Wrapper)
		if !ok {
			break
		}
		b = w.Unwrap()
	}
	return nil, false
}
