// Package tags maps labels to object ids using a filesystem.
//
// Each tag is a directory beneath the root,
// and an object has a tag when the tag's directory holds a file named by the object's id.
// The file's contents do not matter.
//
// The index is separate from the revs.Store it describes.
// Callers update it alongside each Put and delete;
// nothing keeps the two in step automatically.
package tags

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/revs"
)

// Config configures an Index.
type Config struct {
	// Root is the directory holding the tag directories. Required.
	Root string

	// Fs is the filesystem holding Root.
	// If nil, the OS filesystem is used.
	Fs afero.Fs

	// Logger is an optional structured logger.
	Logger *zap.Logger
}

// Index is a tag index.
type Index struct {
	fs   afero.Fs
	root string
	lg   *zap.Logger
}

// marker is the content of every marker file.
var marker = []byte("1")

// New produces a new Index.
// It returns an error wrapping revs.ErrInvalidArgument if conf.Root is empty.
// On the OS filesystem the root is made absolute.
// The root is created if it does not exist.
func New(conf Config) (*Index, error) {
	if conf.Root == "" {
		return nil, errors.Wrap(revs.ErrInvalidArgument, "no root for tag index")
	}
	x := &Index{fs: conf.Fs, root: filepath.Clean(conf.Root), lg: conf.Logger}
	if x.fs == nil {
		x.fs = afero.NewOsFs()
	}
	if x.lg == nil {
		x.lg = zap.NewNop()
	}
	if _, ok := x.fs.(*afero.OsFs); ok {
		abs, err := filepath.Abs(x.root)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %s", x.root)
		}
		x.root = abs
	}
	if err := x.fs.MkdirAll(x.root, 0755); err != nil {
		return nil, errors.Wrapf(err, "ensuring path %s exists", x.root)
	}
	return x, nil
}

// Root returns the root directory of x.
func (x *Index) Root() string {
	return x.root
}

func check(tag, id string) error {
	if !revs.ValidKey(tag) {
		return errors.Wrapf(revs.ErrInvalidArgument, "invalid tag %q", tag)
	}
	return revs.CheckKey(id)
}

// AddTag gives an object a tag.
// Adding a tag the object already has is not an error.
func (x *Index) AddTag(_ context.Context, tag, id string) error {
	if err := check(tag, id); err != nil {
		return err
	}
	dir := filepath.Join(x.root, tag)
	if err := x.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}
	path := filepath.Join(dir, id)
	if err := afero.WriteFile(x.fs, path, marker, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	x.lg.Debug("added tag", zap.String("tag", tag), zap.String("id", id))
	return nil
}

// RemoveTag takes a tag away from an object.
// Removing a tag the object does not have is not an error.
// The tag's directory remains even when it becomes empty.
func (x *Index) RemoveTag(_ context.Context, tag, id string) error {
	if err := check(tag, id); err != nil {
		return err
	}
	path := filepath.Join(x.root, tag, id)
	err := x.fs.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "removing %s", path)
	}
	x.lg.Debug("removed tag", zap.String("tag", tag), zap.String("id", id))
	return nil
}

// ArticlesForTag returns the ids of the objects having a tag.
// A tag that was never added has no objects.
func (x *Index) ArticlesForTag(_ context.Context, tag string) (Set, error) {
	if !revs.ValidKey(tag) {
		return nil, errors.Wrapf(revs.ErrInvalidArgument, "invalid tag %q", tag)
	}
	dir := filepath.Join(x.root, tag)
	infos, err := afero.ReadDir(x.fs, dir)
	if os.IsNotExist(err) {
		return Set{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading dir %s", dir)
	}
	out := make(Set, len(infos))
	for _, info := range infos {
		out.Add(info.Name())
	}
	return out, nil
}

// ArticlesByTags returns the ids of the objects having all of the given tags.
// An empty list of tags matches nothing, not everything.
func (x *Index) ArticlesByTags(ctx context.Context, tags []string) (Set, error) {
	if len(tags) == 0 {
		return Set{}, nil
	}

	sets := make([]Set, len(tags))

	eg, ctx2 := errgroup.WithContext(ctx)
	for i, tag := range tags {
		i, tag := i, tag
		eg.Go(func() error {
			s, err := x.ArticlesForTag(ctx2, tag)
			sets[i] = s
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := sets[0]
	for _, s := range sets[1:] {
		result = result.Intersect(s)
	}
	return result, nil
}

// Tags lists the tags that have directories, in sorted order.
// Tags whose last object was removed are still listed.
func (x *Index) Tags(_ context.Context) ([]string, error) {
	infos, err := afero.ReadDir(x.fs, x.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading dir %s", x.root)
	}
	var out []string
	for _, info := range infos {
		if info.IsDir() {
			out = append(out, info.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
