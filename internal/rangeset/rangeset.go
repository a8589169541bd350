// Package rangeset implements set algebra over ordered, non-overlapping
// half-open integer ranges. It is used to track which transcript byte
// positions produced a parsed value.
package rangeset

import "sort"

// Range is a half-open interval [Start, End) of byte offsets.
type Range struct {
	Start int
	End   int
}

// Len returns the number of elements in the range.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// IsEmpty reports whether the range contains no elements.
func (r Range) IsEmpty() bool {
	return r.End <= r.Start
}

// Intersect returns the overlap of two ranges. The second return value
// is false when the ranges do not overlap.
func (r Range) Intersect(other Range) (Range, bool) {
	start := max(r.Start, other.Start)
	end := min(r.End, other.End)
	if start < end {
		return Range{Start: start, End: end}, true
	}
	return Range{}, false
}

// Contains reports whether i is an element of the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Set is an ordered collection of ranges.
//
// Invariant, maintained by every constructor and operation: ranges are
// sorted ascending by start, pairwise non-overlapping, pairwise
// non-adjacent (touching ranges are merged), and none is empty. The
// invariant is what lets every set operation run as a single linear
// sweep.
type Set struct {
	ranges []Range
}

// New builds a set from arbitrary ranges, normalizing them to satisfy
// the set invariant. Empty ranges are dropped.
func New(ranges ...Range) Set {
	rs := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if !r.IsEmpty() {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Start != rs[j].Start {
			return rs[i].Start < rs[j].Start
		}
		return rs[i].End < rs[j].End
	})

	out := rs[:0]
	for _, r := range rs {
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			if r.End > out[n-1].End {
				out[n-1].End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return Set{ranges: out}
}

// FromRange builds a set holding a single range.
func FromRange(r Range) Set {
	if r.IsEmpty() {
		return Set{}
	}
	return Set{ranges: []Range{r}}
}

// Ranges returns a copy of the ranges in order.
func (s Set) Ranges() []Range {
	out := make([]Range, len(s.ranges))
	copy(out, s.ranges)
	return out
}

// NumRanges returns the number of ranges in the set.
func (s Set) NumRanges() int {
	return len(s.ranges)
}

// Len returns the total number of elements across all ranges.
func (s Set) Len() int {
	var n int
	for _, r := range s.ranges {
		n += r.Len()
	}
	return n
}

// IsEmpty reports whether the set contains no elements.
func (s Set) IsEmpty() bool {
	return len(s.ranges) == 0
}

// Min returns the smallest element. The second return value is false
// for an empty set.
func (s Set) Min() (int, bool) {
	if len(s.ranges) == 0 {
		return 0, false
	}
	return s.ranges[0].Start, true
}

// Max returns one past the largest element. The second return value is
// false for an empty set.
func (s Set) Max() (int, bool) {
	if len(s.ranges) == 0 {
		return 0, false
	}
	return s.ranges[len(s.ranges)-1].End, true
}

// Contains reports whether i is an element of the set.
func (s Set) Contains(i int) bool {
	n := sort.Search(len(s.ranges), func(j int) bool {
		return s.ranges[j].End > i
	})
	return n < len(s.ranges) && s.ranges[n].Contains(i)
}

// Equal reports whether two sets contain the same elements. Because
// both sets are normalized, element equality is range-wise equality.
func (s Set) Equal(other Set) bool {
	if len(s.ranges) != len(other.ranges) {
		return false
	}
	for i, r := range s.ranges {
		if r != other.ranges[i] {
			return false
		}
	}
	return true
}

// Offset shifts every range forward by delta. Copies of a set share the
// backing array, so the shifted ranges are written to a fresh slice;
// shifting one copy must never move another.
func (s *Set) Offset(delta int) {
	if len(s.ranges) == 0 {
		return
	}
	shifted := make([]Range, len(s.ranges))
	for i, r := range s.ranges {
		shifted[i] = Range{Start: r.Start + delta, End: r.End + delta}
	}
	s.ranges = shifted
}

// Union returns the set union of s and other. Overlapping or adjacent
// ranges from either input coalesce into one.
func (s Set) Union(other Set) Set {
	out := Set{ranges: make([]Range, 0, len(s.ranges)+len(other.ranges))}

	i, j := 0, 0
	for i < len(s.ranges) || j < len(other.ranges) {
		var next Range
		switch {
		case j >= len(other.ranges):
			next = s.ranges[i]
			i++
		case i >= len(s.ranges):
			next = other.ranges[j]
			j++
		case s.ranges[i].Start <= other.ranges[j].Start:
			next = s.ranges[i]
			i++
		default:
			next = other.ranges[j]
			j++
		}

		if n := len(out.ranges); n > 0 && next.Start <= out.ranges[n-1].End {
			if next.End > out.ranges[n-1].End {
				out.ranges[n-1].End = next.End
			}
			continue
		}
		out.ranges = append(out.ranges, next)
	}
	return out
}

// Intersect returns the set intersection of s and other.
func (s Set) Intersect(other Set) Set {
	var out Set

	i, j := 0, 0
	for i < len(s.ranges) && j < len(other.ranges) {
		a, b := s.ranges[i], other.ranges[j]

		switch {
		case a.End <= b.Start:
			// a is entirely leftward of b.
			i++
		case b.End <= a.Start:
			// b is entirely leftward of a.
			j++
		default:
			if overlap, ok := a.Intersect(b); ok {
				// Both inputs are sorted, non-adjacent and
				// non-overlapping, so the overlaps come out in order
				// with gaps between them. No normalization pass needed.
				out.ranges = append(out.ranges, overlap)
			}
			if a.End <= b.End {
				i++
			}
			if b.End <= a.End {
				j++
			}
		}
	}
	return out
}

// IntersectRange returns the intersection of the set with a single
// range. The result is identical to Intersect(FromRange(r)) in either
// operand order.
func (s Set) IntersectRange(r Range) Set {
	var out Set
	for _, a := range s.ranges {
		if r.End <= a.Start {
			// The remaining ranges are all rightward of r.
			break
		}
		if overlap, ok := a.Intersect(r); ok {
			out.ranges = append(out.ranges, overlap)
		}
	}
	return out
}

// Difference returns the set of elements in s that are not in other.
func (s Set) Difference(other Set) Set {
	var out Set

	j := 0
	for _, a := range s.ranges {
		// Skip subtrahend ranges entirely leftward of a.
		for j < len(other.ranges) && other.ranges[j].End <= a.Start {
			j++
		}

		rest := a
		k := j
		for k < len(other.ranges) && other.ranges[k].Start < rest.End {
			b := other.ranges[k]
			if b.Start > rest.Start {
				out.ranges = append(out.ranges, Range{Start: rest.Start, End: b.Start})
			}
			if b.End >= rest.End {
				rest = Range{}
				break
			}
			rest.Start = b.End
			k++
		}
		if !rest.IsEmpty() {
			out.ranges = append(out.ranges, rest)
		}
	}
	return out
}
