package lemma

import "sort"

// Set is an unordered set of lemmas.
type Set map[string]struct{}

// NewSet builds a set from the given lemmas.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		if it != "" {
			s[it] = struct{}{}
		}
	}
	return s
}

// Has reports whether lemma is in the set.
func (s Set) Has(lemma string) bool {
	_, ok := s[lemma]
	return ok
}

// Intersects reports whether s and other share at least one lemma.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for k := range small {
		if large.Has(k) {
			return true
		}
	}
	return false
}

// Slice returns the lemmas in sorted order.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
