// Package gcs implements a revs.Backend on Google Cloud Storage.
//
// Each entry is an object named <key>/<name>.
// A key exists as long as any object has its prefix.
// Objects are created with a does-not-exist precondition,
// and become visible only when fully written.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
)

var _ revs.Backend = &Backend{}

// Backend is a Google Cloud Storage-based implementation of revs.Backend.
type Backend struct {
	bucket *storage.BucketHandle
}

// New produces a new Backend.
func New(bucket *storage.BucketHandle) *Backend {
	return &Backend{bucket: bucket}
}

func objName(key, name string) string {
	return key + "/" + name
}

// Locate returns the object name of an entry.
func (b *Backend) Locate(key, name string) string {
	return path.Join(key, name)
}

// Keys lists the top-level prefixes of the bucket.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var (
		out  []string
		iter = b.bucket.Objects(ctx, &storage.Query{Delimiter: "/"})
	)
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterating over objects")
		}
		if attrs.Prefix != "" {
			out = append(out, strings.TrimSuffix(attrs.Prefix, "/"))
		}
	}
}

// Has tells whether any object has the prefix <key>/.
func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	iter := b.bucket.Objects(ctx, &storage.Query{Prefix: key + "/"})
	_, err := iter.Next()
	if stderrs.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "iterating over objects in %s", key)
	}
	return true, nil
}

// Names lists the entries of key.
func (b *Backend) Names(ctx context.Context, key string) ([]string, error) {
	var (
		prefix = key + "/"
		out    []string
		iter   = b.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	)
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "iterating over objects in %s", key)
		}
		if attrs.Name == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(attrs.Name, prefix))
	}
}

// Read reads the object for an entry.
func (b *Backend) Read(ctx context.Context, key, name string) ([]byte, error) {
	oname := objName(key, name)
	r, err := b.bucket.Object(oname).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, revs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading info of object %s", oname)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	return data, errors.Wrapf(err, "reading contents of object %s", oname)
}

// Create writes the object for a new entry.
func (b *Backend) Create(ctx context.Context, key, name string, data []byte) error {
	var (
		oname = objName(key, name)
		obj   = b.bucket.Object(oname).If(storage.Conditions{DoesNotExist: true})
		w     = obj.NewWriter(ctx)
	)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing object %s", oname)
	}

	err := w.Close()
	var e *googleapi.Error
	if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
		return revs.ErrExists
	}
	return errors.Wrapf(err, "writing object %s", oname)
}

// Remove deletes the object for an entry.
func (b *Backend) Remove(ctx context.Context, key, name string) error {
	oname := objName(key, name)
	err := b.bucket.Object(oname).Delete(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return errors.Wrapf(err, "deleting object %s", oname)
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (revs.Backend, error) {
		var options []option.ClientOption
		creds, err := store.String(conf, "creds")
		if err != nil {
			return nil, err
		}
		bucketName, err := store.String(conf, "bucket")
		if err != nil {
			return nil, err
		}
		options = append(options, option.WithCredentialsFile(creds))
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}
