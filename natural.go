package revs

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// A Collator is not safe for concurrent use,
// so each comparison or sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric, collate.IgnoreCase, collate.IgnoreDiacritics)
}

// CompareNatural compares two strings in natural order:
// runs of digits compare by numeric value,
// letters compare without regard to case or diacritics.
// Strings that collate equal are ordered bytewise,
// so the order is total.
func CompareNatural(a, b string) int {
	return compareNatural(newCollator(), a, b)
}

func compareNatural(c *collate.Collator, a, b string) int {
	if n := c.CompareString(a, b); n != 0 {
		return n
	}
	return strings.Compare(a, b)
}

// SortNatural sorts names in place in natural order (see CompareNatural).
func SortNatural(names []string) {
	c := newCollator()
	sort.Slice(names, func(i, j int) bool {
		return compareNatural(c, names[i], names[j]) < 0
	})
}
