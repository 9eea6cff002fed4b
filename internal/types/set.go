package types

import (
	"cmp"
	"encoding/json"
	"maps"
	"slices"
)

// Set is an unordered collection of distinct values. The zero value is an
// empty, read-only set; use NewSet or Clone before adding.
type Set[T cmp.Ordered] map[T]struct{}

// NewSet builds a set from vals.
func NewSet[T cmp.Ordered](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members.
func (s Set[T]) Len() int { return len(s) }

// Clone returns an independent copy. Cloning nil yields an empty set.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	maps.Copy(out, s)
	return out
}

// With returns a copy of s that also contains v.
func (s Set[T]) With(v T) Set[T] {
	out := s.Clone()
	out[v] = struct{}{}
	return out
}

// Without returns a copy of s that does not contain v.
func (s Set[T]) Without(v T) Set[T] {
	out := s.Clone()
	delete(out, v)
	return out
}

// Toggle returns a copy of s with v's membership flipped.
func (s Set[T]) Toggle(v T) Set[T] {
	if s.Has(v) {
		return s.Without(v)
	}
	return s.With(v)
}

// Sorted returns the members in ascending order.
func (s Set[T]) Sorted() []T {
	return slices.Sorted(maps.Keys(s))
}

// Equal reports whether both sets hold the same members.
func (s Set[T]) Equal(o Set[T]) bool {
	if len(s) != len(o) {
		return false
	}
	for v := range s {
		if !o.Has(v) {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every member of s is in o.
func (s Set[T]) SubsetOf(o Set[T]) bool {
	for v := range s {
		if !o.Has(v) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array so output is deterministic.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	sorted := s.Sorted()
	if sorted == nil {
		sorted = []T{}
	}
	return json.Marshal(sorted)
}

// UnmarshalJSON decodes an array into the set.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var vals []T
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	*s = NewSet(vals...)
	return nil
}
