package revs

import (
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestSortNatural(t *testing.T) {
	cases := []struct {
		in, want []string
	}{
		{
			in:   []string{"10-a.json", "9-a.json", "2-a.json", "1-a.json"},
			want: []string{"1-a.json", "2-a.json", "9-a.json", "10-a.json"},
		},
		{
			in:   []string{"a10", "A9", "a1"},
			want: []string{"a1", "A9", "a10"},
		},
		{
			in:   []string{"abc", "ABC", "Abc"},
			want: []string{"ABC", "Abc", "abc"},
		},
		{
			in:   []string{"bogus-a.json", "10-abc.json", "9-ABC.json", "2-abc.json"},
			want: []string{"2-abc.json", "9-ABC.json", "10-abc.json", "bogus-a.json"},
		},
		{
			in:   []string{"2-b.json", "2-a.json", "2-C.json"},
			want: []string{"2-a.json", "2-b.json", "2-C.json"},
		},
	}
	for i, c := range cases {
		got := append([]string(nil), c.in...)
		SortNatural(got)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("case %d mismatch (-want +got):\n%s", i+1, diff)
		}
	}
}

func TestCompareNatural(t *testing.T) {
	if n := CompareNatural("x", "x"); n != 0 {
		t.Errorf("got %d comparing equal strings", n)
	}
	if n := CompareNatural("abc", "ABC"); n <= 0 {
		t.Errorf("got %d comparing abc to ABC, want > 0", n)
	}
	if n := CompareNatural("2", "10"); n >= 0 {
		t.Errorf("got %d comparing 2 to 10, want < 0", n)
	}
}

func TestRevisionOrder(t *testing.T) {
	f := func(a, b uint32) bool {
		if a == b {
			return true
		}
		if a > b {
			a, b = b, a
		}
		x := RevisionName(int64(a), uuid.New().String())
		y := RevisionName(int64(b), uuid.New().String())
		return CompareNatural(x, y) < 0 && CompareNatural(y, x) > 0
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
