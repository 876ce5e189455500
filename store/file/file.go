// Package file implements a revs.Backend as a file hierarchy.
//
// Each key is a directory beneath the root
// and each entry is a file in it.
// Entries are written to a temporary file first
// and hard-linked into place when complete,
// so readers never see a partial entry
// and an existing entry is never replaced.
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
)

var (
	_ revs.Backend = &Backend{}
	_ revs.Locker  = &Backend{}
)

// entryMode is the permission of entry files.
const entryMode = 0644

// Backend is a file-based implementation of revs.Backend.
type Backend struct {
	root    string
	flocker flock.Locker

	mu    sync.Mutex
	locks map[string]*sync.Mutex // serializes lockers within this process
}

// New produces a new Backend storing data beneath root.
// The root is made absolute and created if it does not exist.
func New(root string) (*Backend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", root)
	}
	if err = os.MkdirAll(abs, 0755); err != nil {
		return nil, errors.Wrapf(err, "ensuring path %s exists", abs)
	}
	return &Backend{root: abs, locks: make(map[string]*sync.Mutex)}, nil
}

// Root is the absolute path of the root directory.
func (b *Backend) Root() string {
	return b.root
}

func (b *Backend) dir(key string) string {
	return filepath.Join(b.root, key)
}

// Locate returns the path of an entry.
func (b *Backend) Locate(key, name string) string {
	return filepath.Join(b.root, key, name)
}

// Keys lists the entries of the root directory,
// recreating the root if it has gone missing.
func (b *Backend) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if os.IsNotExist(err) {
		err = os.MkdirAll(b.root, 0755)
		return nil, errors.Wrapf(err, "ensuring path %s exists", b.root)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading dir %s", b.root)
	}
	return entryNames(entries), nil
}

// Has tells whether the directory for key exists.
func (b *Backend) Has(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(b.dir(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "statting %s", b.dir(key))
	}
	return true, nil
}

// Names lists the files in the directory for key.
func (b *Backend) Names(_ context.Context, key string) ([]string, error) {
	dir := b.dir(key)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading dir %s", dir)
	}
	return entryNames(entries), nil
}

func entryNames(entries []os.DirEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

// Read reads the file for an entry.
func (b *Backend) Read(_ context.Context, key, name string) ([]byte, error) {
	path := b.Locate(key, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, revs.ErrNotFound
	}
	return data, errors.Wrapf(err, "reading %s", path)
}

// Create writes the file for a new entry.
func (b *Backend) Create(_ context.Context, key, name string, data []byte) error {
	var (
		dir  = b.dir(key)
		path = filepath.Join(dir, name)
	)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	defer os.Remove(tmp.Name())

	err = func() error {
		defer tmp.Close()

		// CreateTemp makes the file private; revisions are shared.
		if err := tmp.Chmod(entryMode); err != nil {
			return errors.Wrapf(err, "setting mode of %s", tmp.Name())
		}
		if _, err := tmp.Write(data); err != nil {
			return errors.Wrapf(err, "writing data to %s", tmp.Name())
		}
		return errors.Wrapf(tmp.Sync(), "syncing %s", tmp.Name())
	}()
	if err != nil {
		return err
	}

	err = os.Link(tmp.Name(), path)
	if os.IsExist(err) {
		return revs.ErrExists
	}
	return errors.Wrapf(err, "linking %s", path)
}

// Remove deletes the file for an entry.
func (b *Backend) Remove(_ context.Context, key, name string) error {
	path := b.Locate(key, name)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(err, "removing %s", path)
}

func (b *Backend) lockPath(key string) string {
	return filepath.Join(b.root, "."+key+".lock")
}

// Lock takes an advisory file lock for key.
// It coordinates with other processes using the same root.
func (b *Backend) Lock(_ context.Context, key string) (func() error, error) {
	b.mu.Lock()
	m, ok := b.locks[key]
	if !ok {
		m = new(sync.Mutex)
		b.locks[key] = m
	}
	b.mu.Unlock()

	m.Lock()

	path := b.lockPath(key)
	err := func() error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return errors.Wrapf(err, "creating lock file %s", path)
		}
		if err = f.Close(); err != nil {
			return errors.Wrapf(err, "closing lock file %s", path)
		}
		return errors.Wrapf(b.flocker.Lock(path), "locking %s", path)
	}()
	if err != nil {
		m.Unlock()
		return nil, err
	}

	return func() error {
		defer m.Unlock()
		return b.flocker.Unlock(path)
	}, nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (revs.Backend, error) {
		root, err := store.String(conf, "root")
		if err != nil {
			return nil, err
		}
		return New(root)
	})
}
