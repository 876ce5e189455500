package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/revs"
)

// Store exercises a revs.Store on top of b.
func Store(ctx context.Context, t *testing.T, b revs.Backend) {
	s, err := revs.New(revs.Config{Backend: b})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("put_get", func(t *testing.T) { putGet(ctx, t, s) })
	t.Run("explicit_rev", func(t *testing.T) { explicitRev(ctx, t, s) })
	t.Run("invalid", func(t *testing.T) { invalid(ctx, t, s) })
	t.Run("clean", func(t *testing.T) { clean(ctx, t, s) })
	t.Run("race", func(t *testing.T) { race(ctx, t, b) })
	t.Run("format", func(t *testing.T) { format(ctx, t, s) })
}

func putGet(ctx context.Context, t *testing.T, s *revs.Store) {
	id := UniqueKey("putget")

	if _, err := s.Get(ctx, id); !errors.Is(err, revs.ErrNotFound) {
		t.Fatalf("got error %v getting a never-written object, want ErrNotFound", err)
	}
	ok, err := s.Has(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("Has(%s) before Put is true", id)
	}
	latest, err := s.LatestRevisionNumber(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if latest != 0 {
		t.Fatalf("got latest revision %d before Put, want 0", latest)
	}

	for i := int64(1); i <= 3; i++ {
		data := revs.Record{
			"id":    id,
			"title": fmt.Sprintf("version %d", i),
			"tags":  []interface{}{"a", "b"},
		}
		put, err := s.Put(ctx, data)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := data[revs.RevField]; ok {
			t.Fatal("Put modified its argument")
		}
		if rev, _, err := put.Rev(); err != nil || rev != i {
			t.Fatalf("put revision %d (err %v), want %d", rev, err, i)
		}

		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		for k, v := range data {
			if diff := cmp.Diff(v, got[k]); diff != "" {
				t.Errorf("field %s mismatch (-want +got):\n%s", k, diff)
			}
		}
		if rev, _, err := got.Rev(); err != nil || rev != i {
			t.Errorf("got revision %d (err %v), want %d", rev, err, i)
		}
		if got.UID() != put.UID() {
			t.Errorf("got uid %s, want %s", got.UID(), put.UID())
		}

		latest, err := s.LatestRevisionNumber(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if latest != i {
			t.Errorf("got latest revision %d, want %d", latest, i)
		}
	}

	ok, err = s.Has(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("Has(%s) after Put is false", id)
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !contains(ids, id) {
		t.Errorf("List does not include %s", id)
	}
	for _, listed := range ids {
		if strings.HasPrefix(listed, ".") {
			t.Errorf("List includes hidden entry %s", listed)
		}
	}
}

func explicitRev(ctx context.Context, t *testing.T, s *revs.Store) {
	id := UniqueKey("explicit")

	cases := []struct {
		data revs.Record
		want int64
	}{
		{data: revs.Record{"id": id, "rev": 7}, want: 8},
		{data: revs.Record{"id": id}, want: 9},
		{data: revs.Record{"id": id, "rev": 0}, want: 1},
		{data: revs.Record{"id": id, "rev": nil}, want: 1},
		{data: revs.Record{"id": id, "rev": 3.0}, want: 4},
	}
	for i, c := range cases {
		put, err := s.Put(ctx, c.data)
		if err != nil {
			t.Fatalf("case %d: %s", i+1, err)
		}
		rev, _, err := put.Rev()
		if err != nil {
			t.Fatalf("case %d: %s", i+1, err)
		}
		if rev != c.want {
			t.Errorf("case %d: got revision %d, want %d", i+1, rev, c.want)
		}
	}

	// Lower explicit revisions do not displace the latest.
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if rev, _, _ := got.Rev(); rev != 9 {
		t.Errorf("got latest revision %d, want 9", rev)
	}
}

func invalid(ctx context.Context, t *testing.T, s *revs.Store) {
	id := UniqueKey("invalid")

	cases := []revs.Record{
		nil,
		{},
		{"id": ""},
		{"id": 17},
		{"id": "a/b"},
		{"id": ".hidden"},
		{"id": ".."},
		{"id": id, "rev": -1},
		{"id": id, "rev": 1.5},
		{"id": id, "rev": "5"},
		{"id": id, "rev": int64(math.MaxInt64)},
	}
	for i, c := range cases {
		if _, err := s.Put(ctx, c); !errors.Is(err, revs.ErrInvalidArgument) {
			t.Errorf("case %d (%v): got error %v, want ErrInvalidArgument", i+1, c, err)
		}
	}

	if _, err := s.Get(ctx, ""); !errors.Is(err, revs.ErrInvalidArgument) {
		t.Errorf("got error %v getting an empty id, want ErrInvalidArgument", err)
	}

	ok, err := s.Has(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("an invalid Put created an object")
	}
}

func clean(ctx context.Context, t *testing.T, s *revs.Store) {
	id := UniqueKey("clean")

	deleted, err := s.Clean(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 0 {
		t.Fatalf("cleaning a never-written object deleted %v", deleted)
	}

	for i := 0; i < 12; i++ {
		if _, err := s.Put(ctx, revs.Record{"id": id, "n": i}); err != nil {
			t.Fatal(err)
		}
	}

	before, err := s.Revisions(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 12 {
		t.Fatalf("got %d revisions, want 12", len(before))
	}
	if !strings.HasPrefix(before[11], "12-") {
		t.Fatalf("latest revision is %s, want 12-*", before[11])
	}

	var want []string
	for _, name := range before[:11] {
		want = append(want, s.Backend().Locate(id, name))
	}

	deleted, err = s.Clean(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, deleted); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}

	after, err := s.Revisions(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before[11:], after); diff != "" {
		t.Errorf("remaining mismatch (-want +got):\n%s", diff)
	}

	deleted, err = s.Clean(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 0 {
		t.Errorf("second Clean deleted %v", deleted)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if rev, _, _ := got.Rev(); rev != 12 {
		t.Errorf("got revision %d after Clean, want 12", rev)
	}
}

// race simulates two writers that share nothing but the Backend
// and compute the same revision number.
func race(ctx context.Context, t *testing.T, b revs.Backend) {
	writers := make([]*revs.Store, 2)
	for i := range writers {
		s, err := revs.New(revs.Config{Backend: b})
		if err != nil {
			t.Fatal(err)
		}
		writers[i] = s
	}

	for _, order := range [][]int{{0, 1}, {1, 0}} {
		id := UniqueKey("race")
		for _, w := range order {
			// An explicit rev of 0 makes both writers choose revision 1,
			// as if each had found the object empty.
			if _, err := writers[w].Put(ctx, revs.Record{"id": id, "v": w + 1, "rev": 0}); err != nil {
				t.Fatal(err)
			}
		}
		checkLatest(ctx, t, writers[0], id, 2)
	}

	id := UniqueKey("race")
	var (
		wg   sync.WaitGroup
		errs = make([]error, len(writers))
	)
	for i, w := range writers {
		i, w := i, w
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = w.Put(ctx, revs.Record{"id": id, "v": i + 1})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	checkLatest(ctx, t, writers[1], id, 2)
}

func checkLatest(ctx context.Context, t *testing.T, s *revs.Store, id string, wantCount int) {
	t.Helper()

	names, err := s.Revisions(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != wantCount {
		t.Fatalf("got %d revisions of %s, want %d", len(names), id, wantCount)
	}
	for i := 1; i < len(names); i++ {
		if revs.CompareNatural(names[i-1], names[i]) >= 0 {
			t.Fatalf("revisions out of order: %s before %s", names[i-1], names[i])
		}
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	rev, _, err := got.Rev()
	if err != nil {
		t.Fatal(err)
	}
	if want := names[len(names)-1]; revs.RevisionName(rev, got.UID()) != want {
		t.Errorf("Get returned %s, want %s", revs.RevisionName(rev, got.UID()), want)
	}
}

func format(ctx context.Context, t *testing.T, s *revs.Store) {
	id := UniqueKey("format")

	put, err := s.Put(ctx, revs.Record{"id": id, "html": "<b>&</b>"})
	if err != nil {
		t.Fatal(err)
	}
	rev, _, err := put.Rev()
	if err != nil {
		t.Fatal(err)
	}

	raw, err := s.Backend().Read(ctx, id, revs.RevisionName(rev, put.UID()))
	if err != nil {
		t.Fatal(err)
	}

	want := fmt.Sprintf("{\n  \"html\": \"<b>&</b>\",\n  \"id\": %q,\n  \"rev\": 1,\n  \"uid\": %q\n}", id, put.UID())
	if !bytes.Equal(raw, []byte(want)) {
		t.Errorf("got file contents\n%s\nwant\n%s", raw, want)
	}
}
