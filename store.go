package revs

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config configures a Store.
type Config struct {
	// Backend holds the data. Required.
	Backend Backend

	// Logger is an optional structured logger.
	// If nil, nothing is logged.
	Logger *zap.Logger

	// Exclusive, when the Backend (or one it wraps) is a Locker,
	// makes Put and Clean hold the object's lock,
	// so that Clean cannot race with a Put of the same object.
	Exclusive bool

	// Workers bounds the number of objects cleaned concurrently
	// by Clean("").
	// If zero, runtime.NumCPU() is used.
	Workers int
}

// Store is a revisioned object store.
//
// Each object is a directory in the Backend
// and each revision of it is an immutable entry named <rev>-<uid>.json.
// The latest revision is the last entry in natural order (see SortNatural).
// Nothing is cached:
// every call rereads the Backend.
type Store struct {
	b       Backend
	lg      *zap.Logger
	locker  Locker
	workers int
}

// New produces a new Store.
func New(conf Config) (*Store, error) {
	if conf.Backend == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "no backend")
	}
	s := &Store{
		b:       conf.Backend,
		lg:      conf.Logger,
		workers: conf.Workers,
	}
	if s.lg == nil {
		s.lg = zap.NewNop()
	}
	if s.workers <= 0 {
		s.workers = runtime.NumCPU()
	}
	if conf.Exclusive {
		if l, ok := LockerOf(conf.Backend); ok {
			s.locker = l
		}
	}
	return s, nil
}

// Backend returns the Backend of s.
func (s *Store) Backend() Backend {
	return s.b
}

// Has tells whether an object exists.
// An object whose directory holds no revisions "exists"
// even though Get reports it not found.
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	if err := CheckKey(id); err != nil {
		return false, err
	}
	ok, err := s.b.Has(ctx, id)
	return ok, errors.Wrapf(err, "checking for %s", id)
}

// Revisions returns the revision entry names of an object in natural order.
// The last is the latest.
// An object with no directory has no revisions.
func (s *Store) Revisions(ctx context.Context, id string) ([]string, error) {
	if err := CheckKey(id); err != nil {
		return nil, err
	}
	return s.revisions(ctx, id)
}

func (s *Store) revisions(ctx context.Context, id string) ([]string, error) {
	names, err := s.b.Names(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "listing revisions of %s", id)
	}
	names = revisionNames(names)
	SortNatural(names)
	return names, nil
}

// LatestRevisionNumber returns the revision number of the latest revision of an object.
// An object with no revisions yields 0.
// A latest revision whose name has no parseable number yields 1.
func (s *Store) LatestRevisionNumber(ctx context.Context, id string) (int64, error) {
	if err := CheckKey(id); err != nil {
		return 0, err
	}
	names, err := s.revisions(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		names = []string{baseline}
	}
	return ParseRevision(names[len(names)-1]), nil
}

// Get returns the latest revision of an object,
// including its "rev" and "uid" fields.
// Numbers in it are json.Number values.
// It returns ErrNotFound if the object has no revisions.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if err := CheckKey(id); err != nil {
		return nil, err
	}
	names, err := s.revisions(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "object %s", id)
	}
	latest := names[len(names)-1]
	b, err := s.b.Read(ctx, id, latest)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", s.b.Locate(id, latest))
	}
	return decodeRecord(b, s.b.Locate(id, latest))
}

// Put stores a new revision of an object and returns it.
//
// The revision number is one more than:
// the "rev" field of data, if present;
// otherwise the latest revision number of the object, if it exists;
// otherwise zero.
// A caller-supplied "rev" is therefore a floor, not an exact value.
//
// Concurrent Puts of the same object never overwrite each other:
// each writes a fresh entry whose name includes a new random uid.
// If two of them choose the same revision number,
// the uids decide which one is latest.
//
// The data map is not modified.
func (s *Store) Put(ctx context.Context, data Record) (Record, error) {
	if data == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "no data")
	}
	idval, ok := data[IDField]
	if !ok {
		return nil, errors.Wrap(ErrInvalidArgument, "no id")
	}
	id, ok := idval.(string)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidArgument, "id has type %T, want string", idval)
	}
	if err := CheckKey(id); err != nil {
		return nil, err
	}

	base, hasRev, err := data.Rev()
	if err != nil {
		return nil, err
	}
	if hasRev && base < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative rev %d", base)
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "locking %s", id)
		}
		defer unlock()
	}

	if !hasRev {
		exists, err := s.b.Has(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "checking for %s", id)
		}
		if exists {
			base, err = s.LatestRevisionNumber(ctx, id)
			if err != nil {
				return nil, err
			}
		}
	}

	if base == math.MaxInt64 {
		return nil, errors.Wrapf(ErrInvalidArgument, "rev %d has no successor", base)
	}

	var (
		rev     = base + 1
		uid     = uuid.New().String()
		updated = data.clone()
	)
	updated[RevField] = revNumber(rev)
	updated[UIDField] = uid

	b, err := encodeRecord(updated)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding revision %d of %s", rev, id)
	}

	name := RevisionName(rev, uid)
	if err = s.b.Create(ctx, id, name, b); err != nil {
		return nil, errors.Wrapf(err, "writing %s", s.b.Locate(id, name))
	}

	s.lg.Debug("put revision",
		zap.String("id", id),
		zap.Int64("rev", rev),
		zap.String("uid", uid),
		zap.String("name", name),
	)

	return updated, nil
}

// List returns the ids of all objects, in natural order.
// Entries whose names begin with "." are skipped,
// as are entries that vanish while listing.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.b.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, ".") {
			continue
		}
		ok, err := s.b.Has(ctx, key)
		if err != nil {
			return nil, errors.Wrapf(err, "checking for %s", key)
		}
		if ok {
			ids = append(ids, key)
		}
	}
	SortNatural(ids)
	return ids, nil
}

// Clean deletes all but the latest revision of an object,
// or of every object if id is "".
// It returns the locations (see Backend.Locate) of the deleted entries,
// even when it also returns an error.
//
// Unless the Store is exclusive,
// Clean is not safe to run concurrently with Put on the same object.
// It never deletes the entry that was latest when it listed the directory,
// but a concurrent reader may find that the revision it was about to open has vanished.
func (s *Store) Clean(ctx context.Context, id string) ([]string, error) {
	if id != "" {
		if err := CheckKey(id); err != nil {
			return nil, err
		}
		return s.cleanOne(ctx, id)
	}

	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]string, len(ids))

	eg, ctx2 := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i, id := range ids {
		i, id := i, id
		eg.Go(func() error {
			if err := ctx2.Err(); err != nil {
				return err
			}
			deleted, err := s.cleanOne(ctx2, id)
			results[i] = deleted
			return err
		})
	}
	err = eg.Wait()

	var out []string
	for _, r := range results {
		out = append(out, r...)
	}
	return out, err
}

func (s *Store) cleanOne(ctx context.Context, id string) ([]string, error) {
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "locking %s", id)
		}
		defer unlock()
	}

	names, err := s.revisions(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(names) < 2 {
		return nil, nil
	}

	var deleted []string
	for _, name := range names[:len(names)-1] {
		if err := s.b.Remove(ctx, id, name); err != nil {
			return deleted, errors.Wrapf(err, "removing %s", s.b.Locate(id, name))
		}
		deleted = append(deleted, s.b.Locate(id, name))
	}

	s.lg.Debug("cleaned object",
		zap.String("id", id),
		zap.Int("deleted", len(deleted)),
		zap.String("kept", names[len(names)-1]),
	)

	return deleted, nil
}

// encodeRecord pretty-prints a record with two-space indentation,
// without HTML escaping and without a trailing newline.
func encodeRecord(r Record) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func decodeRecord(b []byte, where string) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", where)
	}
	if r == nil {
		return nil, errors.Errorf("decoding %s: not a JSON object", where)
	}
	return r, nil
}
