package lru

import (
	"context"
	"errors"
	"testing"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store/mem"
	"github.com/bobg/revs/testutil"
)

func TestBackend(t *testing.T) {
	b, err := New(mem.New(), 16)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Backend(context.Background(), t, b)
}

func TestStore(t *testing.T) {
	b, err := New(mem.New(), 16)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Store(context.Background(), t, b)
}

// countingBackend counts the Reads that reach it.
type countingBackend struct {
	*mem.Backend
	reads int
}

func (c *countingBackend) Read(ctx context.Context, key, name string) ([]byte, error) {
	c.reads++
	return c.Backend.Read(ctx, key, name)
}

func TestCache(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = &countingBackend{Backend: mem.New()}
	)
	b, err := New(nested, 2)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"1-a.json", "2-a.json", "3-a.json"} {
		if err := b.Create(ctx, "k", name, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}

	// The cache holds the two most recent entries.
	for _, name := range []string{"2-a.json", "3-a.json"} {
		got, err := b.Read(ctx, "k", name)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != name {
			t.Errorf("got %q, want %q", got, name)
		}
	}
	if nested.reads != 0 {
		t.Errorf("got %d nested reads for cached entries, want 0", nested.reads)
	}

	if _, err = b.Read(ctx, "k", "1-a.json"); err != nil {
		t.Fatal(err)
	}
	if nested.reads != 1 {
		t.Errorf("got %d nested reads after a miss, want 1", nested.reads)
	}

	if err = b.Remove(ctx, "k", "3-a.json"); err != nil {
		t.Fatal(err)
	}
	if _, err = b.Read(ctx, "k", "3-a.json"); !errors.Is(err, revs.ErrNotFound) {
		t.Errorf("got error %v reading a removed entry, want ErrNotFound", err)
	}
}

func TestLockerOf(t *testing.T) {
	nested := mem.New()
	b, err := New(nested, 4)
	if err != nil {
		t.Fatal(err)
	}
	l, ok := revs.LockerOf(b)
	if !ok {
		t.Fatal("no Locker found through the cache")
	}
	if l != revs.Locker(nested) {
		t.Error("LockerOf found the wrong Locker")
	}
}
