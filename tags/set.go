package tags

import "sort"

// Set is a set of object ids.
type Set map[string]struct{}

// NewSet produces a Set holding the given ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add adds id to s.
func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// Has tells whether id is in s.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns a new Set of the ids in both s and other.
func (s Set) Intersect(other Set) Set {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	out := make(Set)
	for id := range small {
		if big.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Sorted returns the ids in s in sorted order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
