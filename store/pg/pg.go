// Package pg implements a revs.Backend in a Postgresql database.
package pg

import (
	"context"
	"database/sql"
	stderrs "errors"
	"path"

	"github.com/bobg/sqlutil"
	_ "github.com/lib/pq" // register the postgres type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
)

var (
	_ revs.Backend = &Backend{}
	_ revs.Locker  = &Backend{}
)

// Backend is a Postgresql-based implementation of revs.Backend.
type Backend struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `objects` and `revisions` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS objects (
  object_id TEXT PRIMARY KEY NOT NULL
);

CREATE TABLE IF NOT EXISTS revisions (
  object_id TEXT NOT NULL,
  name TEXT NOT NULL,
  data BYTEA NOT NULL,
  PRIMARY KEY (object_id, name)
);
`

// New produces a new Backend using `db` for storage.
// It expects to create tables `objects` and `revisions`,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Backend, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Backend{db: db}, errors.Wrap(err, "creating schema")
}

// Keys lists the object keys.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	const q = `SELECT object_id FROM objects ORDER BY object_id`

	var out []string
	err := sqlutil.ForQueryRows(ctx, b.db, q, func(key string) {
		out = append(out, key)
	})
	return out, errors.Wrap(err, "querying objects")
}

// Has tells whether key exists.
func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	const q = `SELECT 1 FROM objects WHERE object_id = $1`

	var one int
	err := b.db.QueryRowContext(ctx, q, key).Scan(&one)
	if stderrs.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "querying object %s", key)
}

// Names lists the entries of key.
func (b *Backend) Names(ctx context.Context, key string) ([]string, error) {
	ok, err := b.Has(ctx, key)
	if err != nil || !ok {
		return nil, err
	}

	const q = `SELECT name FROM revisions WHERE object_id = $1`

	var out []string
	err = sqlutil.ForQueryRows(ctx, b.db, q, key, func(name string) {
		out = append(out, name)
	})
	return out, errors.Wrapf(err, "querying revisions of %s", key)
}

// Read returns the data of an entry.
func (b *Backend) Read(ctx context.Context, key, name string) ([]byte, error) {
	const q = `SELECT data FROM revisions WHERE object_id = $1 AND name = $2`

	var data []byte
	err := b.db.QueryRowContext(ctx, q, key, name).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, revs.ErrNotFound
	}
	return data, errors.Wrapf(err, "querying revision %s/%s", key, name)
}

// Create inserts an entry, and its key if needed, in one transaction.
func (b *Backend) Create(ctx context.Context, key, name string, data []byte) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	const q1 = `INSERT INTO objects (object_id) VALUES ($1) ON CONFLICT DO NOTHING`
	if _, err = tx.ExecContext(ctx, q1, key); err != nil {
		return errors.Wrapf(err, "inserting object %s", key)
	}

	const q2 = `INSERT INTO revisions (object_id, name, data) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	res, err := tx.ExecContext(ctx, q2, key, name, data)
	if err != nil {
		return errors.Wrapf(err, "inserting revision %s/%s", key, name)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return revs.ErrExists
	}

	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Remove deletes an entry.
func (b *Backend) Remove(ctx context.Context, key, name string) error {
	const q = `DELETE FROM revisions WHERE object_id = $1 AND name = $2`
	_, err := b.db.ExecContext(ctx, q, key, name)
	return errors.Wrapf(err, "deleting revision %s/%s", key, name)
}

// Locate returns key/name.
func (b *Backend) Locate(key, name string) string {
	return path.Join(key, name)
}

// Lock takes a session-level Postgresql advisory lock for key.
// It holds a connection from the pool until unlocked.
func (b *Backend) Lock(ctx context.Context, key string) (func() error, error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting connection")
	}

	const q = `SELECT pg_advisory_lock(hashtext($1))`
	if _, err = conn.ExecContext(ctx, q, key); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "locking %s", key)
	}

	return func() error {
		defer conn.Close()

		const q = `SELECT pg_advisory_unlock(hashtext($1))`
		_, err := conn.ExecContext(context.Background(), q, key)
		return errors.Wrapf(err, "unlocking %s", key)
	}, nil
}

func init() {
	store.Register("pg", func(ctx context.Context, conf map[string]interface{}) (revs.Backend, error) {
		conn, err := store.String(conf, "conn")
		if err != nil {
			return nil, err
		}
		db, err := sql.Open("postgres", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
