package afs

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/bobg/revs"
	"github.com/bobg/revs/testutil"
)

func TestBackend(t *testing.T) {
	b, err := New(afero.NewMemMapFs(), "db")
	if err != nil {
		t.Fatal(err)
	}
	testutil.Backend(context.Background(), t, b)
}

func TestStore(t *testing.T) {
	b, err := New(afero.NewMemMapFs(), "db")
	if err != nil {
		t.Fatal(err)
	}
	testutil.Store(context.Background(), t, b)
}

func TestOsFs(t *testing.T) {
	dirname, err := os.MkdirTemp("", "afsbackend")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	b, err := New(afero.NewBasePathFs(afero.NewOsFs(), dirname), "db")
	if err != nil {
		t.Fatal(err)
	}
	testutil.Store(context.Background(), t, b)
}

func TestNoTempFiles(t *testing.T) {
	ctx := context.Background()
	b, err := New(afero.NewMemMapFs(), "db")
	if err != nil {
		t.Fatal(err)
	}
	s, err := revs.New(revs.Config{Backend: b})
	if err != nil {
		t.Fatal(err)
	}

	put, err := s.Put(ctx, revs.Record{"id": "obj"})
	if err != nil {
		t.Fatal(err)
	}

	infos, err := afero.ReadDir(b.Fs(), b.Locate("obj", ""))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	if diff := cmp.Diff([]string{revs.RevisionName(1, put.UID())}, names); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if perm := infos[0].Mode().Perm(); perm != 0644 {
		t.Errorf("got mode %v, want %v", perm, os.FileMode(0644))
	}
}
