package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/revs"
	"github.com/bobg/revs/testutil"
)

func withBackend(t *testing.T, f func(context.Context, *Backend)) {
	dirname, err := os.MkdirTemp("", "filebackend")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	b, err := New(dirname)
	if err != nil {
		t.Fatal(err)
	}

	f(context.Background(), b)
}

func TestBackend(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		testutil.Backend(ctx, t, b)
	})
}

func TestStore(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		testutil.Store(ctx, t, b)
	})
}

func TestNewCreatesRoot(t *testing.T) {
	dirname, err := os.MkdirTemp("", "filebackend")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	root := filepath.Join(dirname, "a", "b", "c")
	b, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(b.Root()) {
		t.Errorf("root %s is not absolute", b.Root())
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created (err %v)", err)
	}

	// Again, idempotently.
	if _, err = New(root); err != nil {
		t.Fatal(err)
	}

	if err = os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	keys, err := b.Keys(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("got keys %v in a recreated root", keys)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root not recreated: %s", err)
	}
}

func TestLayout(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		s, err := revs.New(revs.Config{Backend: b, Exclusive: true})
		if err != nil {
			t.Fatal(err)
		}

		put, err := s.Put(ctx, revs.Record{"id": "alice-profile", "name": "Alice"})
		if err != nil {
			t.Fatal(err)
		}

		want := filepath.Join(b.Root(), "alice-profile", "1-"+put.UID()+".json")
		if _, err := os.Stat(want); err != nil {
			t.Fatalf("revision file missing: %s", err)
		}

		entries, err := os.ReadDir(filepath.Join(b.Root(), "alice-profile"))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("got entries %v, want only the revision file", names)
		}

		// Exclusive mode leaves a lock file in the root; List must hide it.
		if _, err := os.Stat(filepath.Join(b.Root(), ".alice-profile.lock")); err != nil {
			t.Errorf("lock file missing: %s", err)
		}
		ids, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"alice-profile"}, ids); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestEntryMode(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		s, err := revs.New(revs.Config{Backend: b})
		if err != nil {
			t.Fatal(err)
		}
		put, err := s.Put(ctx, revs.Record{"id": "x"})
		if err != nil {
			t.Fatal(err)
		}
		info, err := os.Stat(b.Locate("x", revs.RevisionName(1, put.UID())))
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0644 {
			t.Errorf("got mode %v, want %v", perm, os.FileMode(0644))
		}
	})
}

func TestForeignFiles(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		s, err := revs.New(revs.Config{Backend: b})
		if err != nil {
			t.Fatal(err)
		}

		dir := filepath.Join(b.Root(), "x")
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}

		// An object directory with no revisions exists but cannot be read.
		ok, err := s.Has(ctx, "x")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Error("Has(x) is false for an empty directory")
		}
		if _, err := s.Get(ctx, "x"); !errors.Is(err, revs.ErrNotFound) {
			t.Errorf("got error %v, want not found", err)
		}

		files := map[string]string{
			"notes.txt":    "ignored",
			"bogus-a.json": `{"id": "x", "which": "bogus"}`,
			".hidden.json": `{"id": "x", "which": "hidden"}`,
			"2-abc.json":   `{"id": "x", "which": "two"}`,
			"10-abc.json":  `{"id": "x", "which": "ten"}`,
			"9-ABC.json":   `{"id": "x", "which": "nine"}`,
		}
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
		}

		// Letters sort after digits, so "bogus-a.json" is latest,
		// and its unparseable number counts as 1.
		latest, err := s.LatestRevisionNumber(ctx, "x")
		if err != nil {
			t.Fatal(err)
		}
		if latest != 1 {
			t.Errorf("got latest revision %d, want 1", latest)
		}
		got, err := s.Get(ctx, "x")
		if err != nil {
			t.Fatal(err)
		}
		if got["which"] != "bogus" {
			t.Errorf("got %v, want the bogus revision", got["which"])
		}

		revisions, err := s.Revisions(ctx, "x")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"2-abc.json", "9-ABC.json", "10-abc.json", "bogus-a.json"}, revisions); diff != "" {
			t.Errorf("revisions mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCleanAll(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		s, err := revs.New(revs.Config{Backend: b, Workers: 2})
		if err != nil {
			t.Fatal(err)
		}

		ids := []string{"a", "b", "c", "d"}
		for i, id := range ids {
			for j := 0; j <= i; j++ {
				if _, err := s.Put(ctx, revs.Record{"id": id, "j": j}); err != nil {
					t.Fatal(err)
				}
			}
		}

		deleted, err := s.Clean(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(deleted) != 0+1+2+3 {
			t.Errorf("deleted %d files, want 6", len(deleted))
		}
		for _, path := range deleted {
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("%s still exists (err %v)", path, err)
			}
		}

		for i, id := range ids {
			names, err := s.Revisions(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if len(names) != 1 {
				t.Errorf("%s has %d revisions after Clean, want 1", id, len(names))
			}
			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if rev, _, _ := got.Rev(); rev != int64(i+1) {
				t.Errorf("%s: got revision %d, want %d", id, rev, i+1)
			}
		}
	})
}

func TestExclusive(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		s, err := revs.New(revs.Config{Backend: b, Exclusive: true})
		if err != nil {
			t.Fatal(err)
		}

		const n = 20

		var (
			wg   sync.WaitGroup
			errs = make(chan error, 2*n)
		)
		for i := 0; i < n; i++ {
			i := i
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := s.Put(ctx, revs.Record{"id": "obj", "i": i})
				errs <- err
			}()
			go func() {
				defer wg.Done()
				_, err := s.Clean(ctx, "obj")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatal(err)
			}
		}

		// With Put serialized, every revision number is distinct.
		latest, err := s.LatestRevisionNumber(ctx, "obj")
		if err != nil {
			t.Fatal(err)
		}
		if latest != n {
			t.Errorf("got latest revision %d, want %d", latest, n)
		}
	})
}
