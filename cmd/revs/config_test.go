package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store/lru"
)

func TestConfig(t *testing.T) {
	dirname, err := os.MkdirTemp("", "revscmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	const text = `
type: lru
size: 100
exclusive: true
workers: 2
tags: %TAGS%
nested:
  type: file
  root: %ROOT%
`
	r := strings.NewReplacer("%TAGS%", filepath.Join(dirname, "tags"), "%ROOT%", filepath.Join(dirname, "storage"))
	filename := filepath.Join(dirname, "revs.yaml")
	if err = os.WriteFile(filename, []byte(r.Replace(text)), 0644); err != nil {
		t.Fatal(err)
	}

	conf, err := loadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	c, err := conf.build(ctx, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.s.Backend().(*lru.Backend); !ok {
		t.Errorf("got backend %T, want *lru.Backend", c.s.Backend())
	}
	if c.x == nil {
		t.Fatal("no tag index")
	}

	rec, err := decodeInput(strings.NewReader(`{"id": "alice-profile", "age": 30}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = c.s.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err = c.x.AddTag(ctx, "people", "alice-profile"); err != nil {
		t.Fatal(err)
	}

	got, err := c.s.Get(ctx, "alice-profile")
	if err != nil {
		t.Fatal(err)
	}
	if rev, _, _ := got.Rev(); rev != 1 {
		t.Errorf("got revision %d, want 1", rev)
	}
	if _, err = os.Stat(filepath.Join(dirname, "storage", "alice-profile", revs.RevisionName(1, got.UID()))); err != nil {
		t.Error(err)
	}
	if _, err = os.Stat(filepath.Join(dirname, "tags", "people", "alice-profile")); err != nil {
		t.Error(err)
	}
}

func TestConfigNoType(t *testing.T) {
	if _, err := (config{"root": "x"}).build(context.Background(), zap.NewNop()); err == nil {
		t.Error("building a config with no type succeeded")
	}
}
