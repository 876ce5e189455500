// Package testutil holds tests that every revs.Backend must pass.
package testutil

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/bobg/revs"
)

// UniqueKey produces a key not used by any earlier call,
// so tests can share a long-lived database or bucket.
func UniqueKey(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

// Backend exercises the primitive operations of a revs.Backend.
func Backend(ctx context.Context, t *testing.T, b revs.Backend) {
	key := UniqueKey("backend")

	ok, err := b.Has(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("Has(%s) before Create is true", key)
	}

	names, err := b.Names(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Fatalf("got names %v before Create, want none", names)
	}

	if _, err = b.Read(ctx, key, "1-a.json"); !errors.Is(err, revs.ErrNotFound) {
		t.Fatalf("got error %v reading a missing entry, want ErrNotFound", err)
	}

	var (
		data1 = []byte(`{"id": "one"}`)
		data2 = []byte(`{"id": "two"}`)
	)

	if err = b.Create(ctx, key, "1-a.json", data1); err != nil {
		t.Fatal(err)
	}
	if err = b.Create(ctx, key, "2-b.json", data2); err != nil {
		t.Fatal(err)
	}
	if err = b.Create(ctx, key, "1-a.json", data2); !errors.Is(err, revs.ErrExists) {
		t.Fatalf("got error %v re-creating an entry, want ErrExists", err)
	}

	ok, err = b.Has(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("Has(%s) after Create is false", key)
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !contains(keys, key) {
		t.Errorf("Keys does not include %s", key)
	}

	names, err = b.Names(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{"1-a.json", "2-b.json"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	got, err := b.Read(ctx, key, "1-a.json")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(data1, got); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}

	if err = b.Remove(ctx, key, "1-a.json"); err != nil {
		t.Fatal(err)
	}
	if err = b.Remove(ctx, key, "1-a.json"); err != nil {
		t.Fatalf("removing a removed entry: %s", err)
	}
	if _, err = b.Read(ctx, key, "1-a.json"); !errors.Is(err, revs.ErrNotFound) {
		t.Fatalf("got error %v reading a removed entry, want ErrNotFound", err)
	}

	names, err = b.Names(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"2-b.json"}, names); diff != "" {
		t.Errorf("names after Remove mismatch (-want +got):\n%s", diff)
	}

	if loc := b.Locate(key, "2-b.json"); loc == "" {
		t.Error("empty location")
	}
}

func contains(strs []string, s string) bool {
	for _, str := range strs {
		if str == s {
			return true
		}
	}
	return false
}
