package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
	"github.com/bobg/revs/store/lru"
	"github.com/bobg/revs/store/mem"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()

	b, err := store.Create(ctx, "lru", map[string]interface{}{
		"size":   10,
		"nested": map[string]interface{}{"type": "mem"},
	})
	if err != nil {
		t.Fatal(err)
	}
	c, ok := b.(*lru.Backend)
	if !ok {
		t.Fatalf("got %T, want *lru.Backend", b)
	}
	if _, ok := c.Unwrap().(*mem.Backend); !ok {
		t.Errorf("got nested %T, want *mem.Backend", c.Unwrap())
	}
	if _, ok := revs.LockerOf(b); !ok {
		t.Error("no Locker in the chain")
	}

	_, err = store.Create(ctx, "nonesuch", nil)
	if err == nil {
		t.Error("creating an unregistered type succeeded")
	} else if !strings.Contains(err.Error(), "lru, mem") {
		t.Errorf("error %q does not list the known types", err)
	}
	if _, err = store.Create(ctx, "lru", map[string]interface{}{"size": 10}); err == nil {
		t.Error("creating a decorator with no nested backend succeeded")
	}
}

func TestTypes(t *testing.T) {
	if diff := cmp.Diff([]string{"lru", "mem"}, store.Types()); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestInt(t *testing.T) {
	conf := map[string]interface{}{
		"a": 3,
		"b": 4.0,
		"c": 4.5,
		"d": "five",
	}
	cases := []struct {
		key     string
		want    int
		wantOK  bool
		wantErr bool
	}{
		{key: "a", want: 3, wantOK: true},
		{key: "b", want: 4, wantOK: true},
		{key: "c", wantOK: true, wantErr: true},
		{key: "d", wantOK: true, wantErr: true},
		{key: "e"},
	}
	for _, c := range cases {
		t.Run(c.key, func(t *testing.T) {
			got, ok, err := store.Int(conf, c.key)
			if (err != nil) != c.wantErr {
				t.Fatalf("got error %v, want error %v", err, c.wantErr)
			}
			if ok != c.wantOK {
				t.Errorf("got ok %v, want %v", ok, c.wantOK)
			}
			if !c.wantErr && got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}
