// Package tagset provides small typed string sets used for plugin metadata
// (edge types a plugin consumes/produces, package names it covers).
package tagset

import (
	"slices"
	"strings"
)

// Set is an unordered set of string-like tags. The zero value is an empty,
// read-only set; use Of or Add on a non-nil Set to populate it.
type Set[T ~string] map[T]struct{}

// Of builds a set from the given tags. Duplicates collapse.
func Of[T ~string](tags ...T) Set[T] {
	s := make(Set[T], len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts tags into s.
func (s Set[T]) Add(tags ...T) {
	for _, t := range tags {
		s[t] = struct{}{}
	}
}

// Merge inserts every tag of other into s.
func (s Set[T]) Merge(other Set[T]) {
	for t := range other {
		s[t] = struct{}{}
	}
}

// Has reports whether t is in s.
func (s Set[T]) Has(t T) bool {
	_, ok := s[t]
	return ok
}

// Len returns the number of tags.
func (s Set[T]) Len() int { return len(s) }

// Empty reports whether the set has no tags. A nil set is empty.
func (s Set[T]) Empty() bool { return len(s) == 0 }

// Intersects reports whether s and other share at least one tag.
func (s Set[T]) Intersects(other Set[T]) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for t := range small {
		if _, ok := large[t]; ok {
			return true
		}
	}
	return false
}

// Clone returns an independent copy. Cloning a nil set yields an empty set.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for t := range s {
		out[t] = struct{}{}
	}
	return out
}

// Sorted returns the tags in ascending order.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// String renders the set as "[a, b, c]" in sorted order (used in skip logs).
func (s Set[T]) String() string {
	tags := s.Sorted()
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
