package revs

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestToInt(t *testing.T) {
	cases := []struct {
		v       interface{}
		want    int64
		wantErr bool
	}{
		{v: nil, want: 0},
		{v: 7, want: 7},
		{v: int32(-2), want: -2},
		{v: uint8(9), want: 9},
		{v: 3.0, want: 3},
		{v: json.Number("12"), want: 12},
		{v: json.Number("12.0"), want: 12},
		{v: 1.5, wantErr: true},
		{v: json.Number("1.5"), wantErr: true},
		{v: "5", wantErr: true},
		{v: true, wantErr: true},
		{v: uint64(1 << 63), wantErr: true},
	}
	for i, c := range cases {
		got, err := toInt(c.v)
		if c.wantErr {
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("case %d (%v): got error %v, want ErrInvalidArgument", i+1, c.v, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("case %d (%v): %s", i+1, c.v, err)
			continue
		}
		if got != c.want {
			t.Errorf("case %d (%v): got %d, want %d", i+1, c.v, got, c.want)
		}
	}
}

func TestValidKey(t *testing.T) {
	cases := map[string]bool{
		"alice-profile": true,
		"article1":      true,
		"a.b":           true,
		"":              false,
		".":             false,
		"..":            false,
		".hidden":       false,
		"a/b":           false,
		`a\b`:           false,
		"a\x00b":        false,
	}
	for key, want := range cases {
		if got := ValidKey(key); got != want {
			t.Errorf("ValidKey(%q) = %v, want %v", key, got, want)
		}
		if err := CheckKey(key); (err == nil) != want {
			t.Errorf("CheckKey(%q) = %v", key, err)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	r := Record{"id": "x", "rev": revNumber(3), "uid": "u", "n": 1.5}
	b, err := encodeRecord(r)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeRecord(b, "test")
	if err != nil {
		t.Fatal(err)
	}
	if rev, ok, err := got.Rev(); err != nil || !ok || rev != 3 {
		t.Errorf("got rev %d, %v, %v; want 3, true, nil", rev, ok, err)
	}
	if got.ID() != "x" || got.UID() != "u" {
		t.Errorf("got id %q uid %q", got.ID(), got.UID())
	}
	if got["n"] != json.Number("1.5") {
		t.Errorf("got n %v (%T), want json.Number 1.5", got["n"], got["n"])
	}

	if _, err = decodeRecord([]byte("null"), "test"); err == nil {
		t.Error("decoding null succeeded")
	}
	if _, err = decodeRecord([]byte("{"), "test"); err == nil {
		t.Error("decoding a truncated record succeeded")
	}
}
