package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store/mem"
	"github.com/bobg/revs/testutil"
)

func TestStore(t *testing.T) {
	testutil.Store(context.Background(), t, New(mem.New(), zap.NewNop()))
}

func TestLogging(t *testing.T) {
	var (
		ctx          = context.Background()
		core, logged = observer.New(zapcore.DebugLevel)
		b            = New(mem.New(), zap.New(core))
	)

	if err := b.Create(ctx, "k", "1-a.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Read(ctx, "k", "1-a.json"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Read(ctx, "k", "2-a.json"); !errors.Is(err, revs.ErrNotFound) {
		t.Fatalf("got error %v, want ErrNotFound", err)
	}

	var msgs []string
	for _, e := range logged.All() {
		msgs = append(msgs, e.LoggerName+" "+e.Level.String()+" "+e.Message)
	}
	want := []string{
		"backend debug Create",
		"backend debug Read",
		"backend error Read",
	}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}

	entry := logged.All()[0]
	fields := entry.ContextMap()
	if fields["key"] != "k" || fields["name"] != "1-a.json" {
		t.Errorf("got fields %v, want key k and name 1-a.json", fields)
	}
}

func TestQuiet(t *testing.T) {
	var (
		ctx          = context.Background()
		core, logged = observer.New(zapcore.InfoLevel)
		b            = New(mem.New(), zap.New(core))
	)
	if _, err := b.Keys(ctx); err != nil {
		t.Fatal(err)
	}
	if n := logged.Len(); n != 0 {
		t.Errorf("got %d entries above debug level, want 0", n)
	}
}
