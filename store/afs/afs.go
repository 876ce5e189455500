// Package afs implements a revs.Backend on an afero filesystem.
//
// The layout is the same as that of the file backend,
// so an afs Backend on the OS filesystem reads and writes the same trees.
// Use afero.NewMemMapFs for a scratch store in tests.
package afs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
)

var _ revs.Backend = &Backend{}

// Backend is an afero-based implementation of revs.Backend.
type Backend struct {
	fs   afero.Fs
	root string
}

// New produces a new Backend storing data beneath root in fs.
// If fs is nil, the OS filesystem is used.
// On the OS filesystem, root is made absolute.
// The root is created if it does not exist.
func New(fs afero.Fs, root string) (*Backend, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	root = filepath.Clean(root)
	if _, ok := fs.(*afero.OsFs); ok {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %s", root)
		}
		root = abs
	}
	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "ensuring path %s exists", root)
	}
	return &Backend{fs: fs, root: root}, nil
}

// Fs returns the filesystem of b.
func (b *Backend) Fs() afero.Fs {
	return b.fs
}

// Root returns the root directory of b.
func (b *Backend) Root() string {
	return b.root
}

func (b *Backend) dir(key string) string {
	return filepath.Join(b.root, key)
}

// Locate returns the path of an entry within the filesystem.
func (b *Backend) Locate(key, name string) string {
	return filepath.Join(b.root, key, name)
}

// Keys lists the entries of the root directory.
func (b *Backend) Keys(_ context.Context) ([]string, error) {
	infos, err := afero.ReadDir(b.fs, b.root)
	if os.IsNotExist(err) {
		err = b.fs.MkdirAll(b.root, 0755)
		return nil, errors.Wrapf(err, "ensuring path %s exists", b.root)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading dir %s", b.root)
	}
	return infoNames(infos), nil
}

// Has tells whether the directory for key exists.
func (b *Backend) Has(_ context.Context, key string) (bool, error) {
	ok, err := afero.Exists(b.fs, b.dir(key))
	return ok, errors.Wrapf(err, "statting %s", b.dir(key))
}

// Names lists the files in the directory for key.
func (b *Backend) Names(_ context.Context, key string) ([]string, error) {
	dir := b.dir(key)
	infos, err := afero.ReadDir(b.fs, dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading dir %s", dir)
	}
	return infoNames(infos), nil
}

func infoNames(infos []os.FileInfo) []string {
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Name())
	}
	return out
}

// Read reads the file for an entry.
func (b *Backend) Read(_ context.Context, key, name string) ([]byte, error) {
	path := b.Locate(key, name)
	data, err := afero.ReadFile(b.fs, path)
	if os.IsNotExist(err) {
		return nil, revs.ErrNotFound
	}
	return data, errors.Wrapf(err, "reading %s", path)
}

// Create writes a temporary file and renames it into place.
// Afero has no portable exclusive rename,
// so exclusivity holds up to a check-then-rename window;
// entry names from a Store carry fresh uids and do not contend.
func (b *Backend) Create(_ context.Context, key, name string, data []byte) error {
	var (
		dir  = b.dir(key)
		path = filepath.Join(dir, name)
	)

	if err := b.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	ok, err := afero.Exists(b.fs, path)
	if err != nil {
		return errors.Wrapf(err, "statting %s", path)
	}
	if ok {
		return revs.ErrExists
	}

	tmp, err := afero.TempFile(b.fs, dir, "."+name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpname := tmp.Name()

	err = func() error {
		defer tmp.Close()

		if _, err := tmp.Write(data); err != nil {
			return errors.Wrapf(err, "writing data to %s", tmpname)
		}
		return errors.Wrapf(tmp.Sync(), "syncing %s", tmpname)
	}()
	if err == nil {
		// TempFile makes the file private; revisions are shared.
		err = errors.Wrapf(b.fs.Chmod(tmpname, 0644), "setting mode of %s", tmpname)
	}
	if err != nil {
		b.fs.Remove(tmpname)
		return err
	}

	if err = b.fs.Rename(tmpname, path); err != nil {
		b.fs.Remove(tmpname)
		return errors.Wrapf(err, "renaming %s to %s", tmpname, path)
	}
	return nil
}

// Remove deletes the file for an entry.
func (b *Backend) Remove(_ context.Context, key, name string) error {
	path := b.Locate(key, name)
	err := b.fs.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(err, "removing %s", path)
}

func init() {
	store.Register("afs", func(_ context.Context, conf map[string]interface{}) (revs.Backend, error) {
		root, err := store.String(conf, "root")
		if err != nil {
			return nil, err
		}
		var fs afero.Fs
		switch kind, _ := conf["fs"].(string); kind {
		case "", "os":
			fs = afero.NewOsFs()
		case "mem":
			fs = afero.NewMemMapFs()
		default:
			return nil, errors.Errorf(`unknown "fs" value %q`, kind)
		}
		return New(fs, root)
	})
}
