// Package logging implements a revs.Backend that delegates everything to a nested Backend,
// logging operations as they happen.
package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
)

var (
	_ revs.Backend = &Backend{}
	_ revs.Wrapper = &Backend{}
)

// Backend logs each call to a nested Backend.
// Successful calls are logged at debug level, failures at error level.
type Backend struct {
	b  revs.Backend
	lg *zap.Logger
}

// New produces a new Backend.
// If lg is nil, zap's global logger is used.
func New(b revs.Backend, lg *zap.Logger) *Backend {
	if lg == nil {
		lg = zap.L()
	}
	return &Backend{b: b, lg: lg.Named("backend")}
}

// Unwrap returns the nested Backend.
func (b *Backend) Unwrap() revs.Backend {
	return b.b
}

func (b *Backend) log(op string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		b.lg.Error(op, append(fields, zap.Error(err))...)
		return
	}
	if ce := b.lg.Check(zapcore.DebugLevel, op); ce != nil {
		ce.Write(fields...)
	}
}

func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := b.b.Keys(ctx)
	b.log("Keys", start, err, zap.Int("count", len(keys)))
	return keys, err
}

func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := b.b.Has(ctx, key)
	b.log("Has", start, err, zap.String("key", key), zap.Bool("has", ok))
	return ok, err
}

func (b *Backend) Names(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	names, err := b.b.Names(ctx, key)
	b.log("Names", start, err, zap.String("key", key), zap.Int("count", len(names)))
	return names, err
}

func (b *Backend) Read(ctx context.Context, key, name string) ([]byte, error) {
	start := time.Now()
	data, err := b.b.Read(ctx, key, name)
	b.log("Read", start, err, zap.String("key", key), zap.String("name", name), zap.Int("size", len(data)))
	return data, err
}

func (b *Backend) Create(ctx context.Context, key, name string, data []byte) error {
	start := time.Now()
	err := b.b.Create(ctx, key, name, data)
	b.log("Create", start, err, zap.String("key", key), zap.String("name", name), zap.Int("size", len(data)))
	return err
}

func (b *Backend) Remove(ctx context.Context, key, name string) error {
	start := time.Now()
	err := b.b.Remove(ctx, key, name)
	b.log("Remove", start, err, zap.String("key", key), zap.String("name", name))
	return err
}

func (b *Backend) Locate(key, name string) string {
	return b.b.Locate(key, name)
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (revs.Backend, error) {
		nested, err := store.CreateNested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, nil), nil
	})
}
